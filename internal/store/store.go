package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUniqueViolation = errors.New("store: unique constraint violated")
	ErrSerialization   = errors.New("store: transaction could not be serialized")
	ErrNoRows          = errors.New("store: no rows affected")
)

// ProductSort names the column ListProducts orders by.
type ProductSort string

const (
	SortCreatedAt ProductSort = "created_at"
	SortPrice     ProductSort = "price"
)

func (s ProductSort) Valid() bool {
	return s == SortCreatedAt || s == SortPrice
}

// ProductFilter narrows ListProducts. Zero values disable a filter.
type ProductFilter struct {
	Approved    *bool
	SellerID    int64
	CategoryID  int64
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinQuantity *int
	MaxQuantity *int
	InStock     bool
	// DiscountedAt keeps products whose standalone discount or one of whose
	// sale events is active at that instant.
	DiscountedAt time.Time

	// SortBy defaults to SortCreatedAt; rows come newest or dearest first
	// unless SortAsc is set. Ties are broken by id in the same direction.
	SortBy  ProductSort
	SortAsc bool

	Limit  int
	Offset int
}

// Tx is the set of queries available both inside and outside a transaction.
// Getters return (nil, nil) when the row does not exist.
type Tx interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetProductForUpdate locks the product row until the enclosing
	// transaction ends.
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	// DeleteProduct removes the product together with its sale attachments
	// and the cart and wishlist lines that reference it.
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)

	CreateSaleEvent(ctx context.Context, e *models.SaleEvent) error
	GetSaleEvent(ctx context.Context, id int64) (*models.SaleEvent, error)
	ListActiveSaleEvents(ctx context.Context, now time.Time) ([]models.SaleEvent, error)
	ListSaleEventsStartedBetween(ctx context.Context, from, to time.Time) ([]models.SaleEvent, error)

	CreateProductSale(ctx context.Context, s *models.ProductSale) error
	GetProductSale(ctx context.Context, id int64) (*models.ProductSale, error)
	GetProductSaleByPair(ctx context.Context, productID, saleEventID int64) (*models.ProductSale, error)
	UpdateProductSalePercentage(ctx context.Context, id int64, pct decimal.Decimal) error
	DeleteProductSale(ctx context.Context, id int64) error
	ListProductSalesForProducts(ctx context.Context, productIDs []int64) ([]models.ProductSale, error)
	// ListLiveProductSalesInEvent re-checks the parent event's window at now,
	// not the copy stored on each row.
	ListLiveProductSalesInEvent(ctx context.Context, saleEventID int64, now time.Time) ([]models.ProductSale, error)
	ListProductSalesInEvent(ctx context.Context, saleEventID int64) ([]models.ProductSale, error)
	ListProductSalesBySeller(ctx context.Context, sellerID int64) ([]models.ProductSale, error)

	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartItem(ctx context.Context, id int64) (*models.CartItem, error)
	GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) error
	DeleteCartItem(ctx context.Context, id int64) error

	GetOrCreateWishlist(ctx context.Context, userID int64) (*models.Wishlist, error)
	GetWishlistItem(ctx context.Context, id int64) (*models.WishlistItem, error)
	GetWishlistItemByProduct(ctx context.Context, wishlistID, productID int64) (*models.WishlistItem, error)
	ListWishlistItems(ctx context.Context, wishlistID int64) ([]models.WishlistItem, error)
	CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error
	DeleteWishlistItem(ctx context.Context, id int64) error
	ListWishlistUsersForProduct(ctx context.Context, productID int64) ([]int64, error)
}

// Store runs queries directly or inside a transaction. WithinTx commits when
// fn returns nil and rolls back otherwise.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// NewStore constructs a Store by kind: "memory" or "postgres".
func NewStore(kind, driver, dataSourceName string) (Store, error) {
	switch kind {
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "postgres", "pg":
		db, err := ConnectDB(driver, dataSourceName)
		if err != nil {
			return nil, err
		}
		return NewDBStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
