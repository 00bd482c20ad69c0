package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to the database named by STOREFRONT_TEST_DSN and
// applies the migrations. Tests using it are skipped when it is unset.
func openTestDB(t *testing.T) *DBStore {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DSN not set")
	}

	db, err := ConnectDB("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, "../../migrations", zap.NewNop()))

	_, err = db.Exec(`TRUNCATE wishlist_items, wishlists, cart_items, carts, product_sales, sale_events, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	s := NewDBStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDBStore_ProductRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	start := base
	p := &models.Product{
		SellerID:                     4,
		NameAr:                       "ع",
		NameEn:                       "thing",
		Price:                        decimal.RequireFromString("19.99"),
		Quantity:                     3,
		HasStandaloneDiscount:        true,
		StandaloneDiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(15)),
		StandaloneDiscountStart:      &start,
	}
	require.NoError(t, s.CreateProduct(ctx, p))
	require.NotZero(t, p.ID)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(p.Price))
	assert.True(t, got.StandaloneDiscountPercentage.Valid)
	require.NotNil(t, got.StandaloneDiscountStart)
	assert.True(t, got.StandaloneDiscountStart.Equal(start))
	assert.Nil(t, got.StandaloneDiscountEnd)

	missing, err := s.GetProduct(ctx, p.ID+1000)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDBStore_UniqueViolationTranslated(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	p := &models.Product{SellerID: 1, NameAr: "a", NameEn: "a", Price: decimal.NewFromInt(5), Quantity: 1}
	require.NoError(t, s.CreateProduct(ctx, p))
	cart, err := s.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)

	require.NoError(t, s.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}))
	err = s.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrUniqueViolation)

	again, err := s.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestDBStore_RowLockSerializesAdmission(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	p := &models.Product{SellerID: 1, NameAr: "a", NameEn: "a", Price: decimal.NewFromInt(5), Quantity: 5}
	require.NoError(t, s.CreateProduct(ctx, p))
	cart, err := s.GetOrCreateCart(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}))
	item, err := s.GetCartItemByProduct(ctx, cart.ID, p.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(tx Tx) error {
				locked, err := tx.GetProductForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				current, err := tx.GetCartItem(ctx, item.ID)
				if err != nil {
					return err
				}
				if current.Quantity+1 > locked.Quantity {
					return nil
				}
				time.Sleep(time.Millisecond)
				return tx.UpdateCartItemQuantity(ctx, item.ID, current.Quantity+1)
			})
		}()
	}
	wg.Wait()

	final, err := s.GetCartItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, final.Quantity)
}

func TestDBStore_DeleteProductAndDiscountFilter(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	onSale := &models.Product{SellerID: 1, NameAr: "a", NameEn: "a", Price: decimal.NewFromInt(30), Quantity: 2, CreatedAt: base}
	plain := &models.Product{SellerID: 1, NameAr: "b", NameEn: "b", Price: decimal.NewFromInt(10), Quantity: 2, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, s.CreateProduct(ctx, onSale))
	require.NoError(t, s.CreateProduct(ctx, plain))

	e := &models.SaleEvent{NameAr: "s", NameEn: "s", StartDate: base.Add(-time.Hour), EndDate: base.Add(time.Hour), CreatedBy: 1}
	require.NoError(t, s.CreateSaleEvent(ctx, e))
	require.NoError(t, s.CreateProductSale(ctx, &models.ProductSale{
		ProductID: onSale.ID, SaleEventID: e.ID, DiscountPercentage: decimal.NewFromInt(10),
		StartDate: e.StartDate, EndDate: e.EndDate,
	}))

	got, err := s.ListProducts(ctx, ProductFilter{DiscountedAt: base})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, onSale.ID, got[0].ID)

	got, err = s.ListProducts(ctx, ProductFilter{SortBy: SortPrice, SortAsc: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, plain.ID, got[0].ID)

	cart, err := s.GetOrCreateCart(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, s.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: onSale.ID, Quantity: 1}))

	require.NoError(t, s.DeleteProduct(ctx, onSale.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, onSale.ID), ErrNoRows)

	items, err := s.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	sales, err := s.ListProductSalesInEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}
