package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartLine struct {
	ItemID       int64           `json:"id"`
	Product      models.Product  `json:"product"`
	Quantity     int             `json:"quantity"`
	MaxAvailable int             `json:"max_available"`
	Pricing      pricing.Quote   `json:"pricing"`
	LineTotal    decimal.Decimal `json:"line_total"`
	AddedAt      time.Time       `json:"added_at"`
}

// CartView is a cart priced at the moment it was read. Totals are derived,
// never stored.
type CartView struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Items         []CartLine      `json:"items"`
	TotalItems    int             `json:"total_items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

type WishlistLine struct {
	ItemID  int64          `json:"id"`
	Product models.Product `json:"product"`
	Pricing pricing.Quote  `json:"pricing"`
	AddedAt time.Time      `json:"added_at"`
}

type WishlistView struct {
	ID     int64          `json:"id"`
	UserID int64          `json:"user_id"`
	Items  []WishlistLine `json:"items"`
}

// MoveResult reports both containers after a wishlist item moved to the
// cart. Incremented is false when the cart line was already at the stock
// limit and was left as is.
type MoveResult struct {
	Cart        *CartView     `json:"cart"`
	Wishlist    *WishlistView `json:"wishlist"`
	Incremented bool          `json:"incremented"`
}

type CartService struct {
	Deps
}

func NewCartService(d Deps) *CartService {
	return &CartService{Deps: d}
}

// purchasable locks an approved product for the rest of the transaction.
func purchasable(ctx context.Context, tx store.Tx, productID int64) (*models.Product, error) {
	p, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsApproved {
		return nil, apperr.NewNotFound("product", productID)
	}
	return p, nil
}

// AddToCart adds quantity units of a product to the user's cart, merging
// with an existing line. The product row stays locked until commit so
// concurrent adds cannot together exceed stock.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	var out *CartView
	err := runTx(ctx, s.Store, "add to cart", func(tx store.Tx) error {
		p, err := purchasable(ctx, tx, productID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			return apperr.NewValidation("quantity", "must be greater than zero", quantity)
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		item, err := tx.GetCartItemByProduct(ctx, cart.ID, p.ID)
		if err != nil {
			return err
		}

		existing := 0
		if item != nil {
			existing = item.Quantity
		}
		total, err := AdmitCartAddition(p, existing, quantity)
		if err != nil {
			return err
		}

		if item != nil {
			err = tx.UpdateCartItemQuantity(ctx, item.ID, total)
		} else {
			err = tx.CreateCartItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: p.ID,
				Quantity:  total,
				AddedAt:   s.Resolver.Now(),
			})
		}
		if err != nil {
			return s.itemWriteError(err)
		}

		out, err = s.renderCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("cart updated",
		zap.Int64("user_id", userID), zap.Int64("product_id", productID), zap.Int("added", quantity))
	return out, nil
}

// UpdateCartItem sets an absolute quantity on one of the user's cart lines.
func (s *CartService) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return nil, apperr.NewValidation("quantity", "must be greater than zero", quantity)
	}

	var out *CartView
	err := runTx(ctx, s.Store, "update cart item", func(tx store.Tx) error {
		cart, item, err := ownedCartItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		p, err := tx.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", item.ProductID)
		}
		if err := AdmitCartQuantity(p, quantity); err != nil {
			return err
		}
		if err := tx.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
			return err
		}
		out, err = s.renderCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID int64) (*CartView, error) {
	var out *CartView
	err := runTx(ctx, s.Store, "remove from cart", func(tx store.Tx) error {
		cart, item, err := ownedCartItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := tx.DeleteCartItem(ctx, item.ID); err != nil {
			return err
		}
		out, err = s.renderCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	var out *CartView
	err := runTx(ctx, s.Store, "get cart", func(tx store.Tx) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		out, err = s.renderCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ownedCartItem(ctx context.Context, tx store.Tx, userID, itemID int64) (*models.Cart, *models.CartItem, error) {
	cart, err := tx.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	item, err := tx.GetCartItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	// another user's item is reported the same as a missing one
	if item == nil || item.CartID != cart.ID {
		return nil, nil, apperr.NewNotFound("cart item", itemID)
	}
	return cart, item, nil
}

func (s *CartService) renderCart(ctx context.Context, tx store.Tx, cart *models.Cart) (*CartView, error) {
	items, err := tx.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	products, err := loadProducts(ctx, tx, cartProductIDs(items))
	if err != nil {
		return nil, err
	}
	quotes, err := quoteProducts(ctx, tx, s.Resolver, productList(products))
	if err != nil {
		return nil, err
	}

	view := &CartView{
		ID:            cart.ID,
		UserID:        cart.UserID,
		Items:         make([]CartLine, 0, len(items)),
		TotalPrice:    decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		q := quotes[p.ID]
		qty := decimal.NewFromInt(int64(item.Quantity))
		line := CartLine{
			ItemID:       item.ID,
			Product:      p,
			Quantity:     item.Quantity,
			MaxAvailable: p.Quantity,
			Pricing:      q,
			LineTotal:    q.Price.Mul(qty),
			AddedAt:      item.AddedAt,
		}
		view.Items = append(view.Items, line)
		view.TotalItems += item.Quantity
		view.TotalPrice = view.TotalPrice.Add(line.LineTotal)
		view.TotalDiscount = view.TotalDiscount.Add(q.Discount().Mul(qty))
	}
	return view, nil
}

func cartProductIDs(items []models.CartItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func loadProducts(ctx context.Context, tx store.Tx, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[id] = *p
		}
	}
	return out, nil
}

func productList(m map[int64]models.Product) []models.Product {
	out := make([]models.Product, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

// itemWriteError reports a lost race on a per-container unique key as
// retryable; the product lock normally prevents it.
func (s *CartService) itemWriteError(err error) error {
	if errors.Is(err, store.ErrUniqueViolation) {
		return apperr.NewTransient("write container item", err)
	}
	return err
}

func (s *CartService) AddToWishlist(ctx context.Context, userID, productID int64) (*WishlistView, error) {
	var out *WishlistView
	err := runTx(ctx, s.Store, "add to wishlist", func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil || !p.IsApproved {
			return apperr.NewNotFound("product", productID)
		}

		wl, err := tx.GetOrCreateWishlist(ctx, userID)
		if err != nil {
			return err
		}
		existing, err := tx.GetWishlistItemByProduct(ctx, wl.ID, p.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.NewConflict("product is already in the wishlist")
		}
		err = tx.CreateWishlistItem(ctx, &models.WishlistItem{
			WishlistID: wl.ID,
			ProductID:  p.ID,
			AddedAt:    s.Resolver.Now(),
		})
		if errors.Is(err, store.ErrUniqueViolation) {
			return apperr.NewConflict("product is already in the wishlist")
		}
		if err != nil {
			return err
		}

		out, err = s.renderWishlist(ctx, tx, wl)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CartService) RemoveFromWishlist(ctx context.Context, userID, itemID int64) (*WishlistView, error) {
	var out *WishlistView
	err := runTx(ctx, s.Store, "remove from wishlist", func(tx store.Tx) error {
		wl, item, err := ownedWishlistItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := tx.DeleteWishlistItem(ctx, item.ID); err != nil {
			return err
		}
		out, err = s.renderWishlist(ctx, tx, wl)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CartService) GetWishlist(ctx context.Context, userID int64) (*WishlistView, error) {
	var out *WishlistView
	err := runTx(ctx, s.Store, "get wishlist", func(tx store.Tx) error {
		wl, err := tx.GetOrCreateWishlist(ctx, userID)
		if err != nil {
			return err
		}
		out, err = s.renderWishlist(ctx, tx, wl)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveToCart moves a wishlist item into the cart: a new line gets one unit,
// an existing line gains one unit unless that would exceed stock, in which
// case it is left unchanged. The wishlist item is removed either way. A
// product with no stock at all cannot be moved, and neither can one that is
// not approved; the wishlist item is kept in both cases.
func (s *CartService) MoveToCart(ctx context.Context, userID, wishlistItemID int64) (*MoveResult, error) {
	var out *MoveResult
	err := runTx(ctx, s.Store, "move to cart", func(tx store.Tx) error {
		wl, wi, err := ownedWishlistItem(ctx, tx, userID, wishlistItemID)
		if err != nil {
			return err
		}
		p, err := purchasable(ctx, tx, wi.ProductID)
		if err != nil {
			return err
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		item, err := tx.GetCartItemByProduct(ctx, cart.ID, p.ID)
		if err != nil {
			return err
		}

		incremented := false
		switch {
		case item == nil:
			if err := AdmitCartQuantity(p, 1); err != nil {
				return err
			}
			err = tx.CreateCartItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: p.ID,
				Quantity:  1,
				AddedAt:   s.Resolver.Now(),
			})
			if err != nil {
				return s.itemWriteError(err)
			}
			incremented = true
		case item.Quantity < p.Quantity:
			if err := tx.UpdateCartItemQuantity(ctx, item.ID, item.Quantity+1); err != nil {
				return err
			}
			incremented = true
		}

		if err := tx.DeleteWishlistItem(ctx, wi.ID); err != nil {
			return err
		}

		cartView, err := s.renderCart(ctx, tx, cart)
		if err != nil {
			return err
		}
		wlView, err := s.renderWishlist(ctx, tx, wl)
		if err != nil {
			return err
		}
		out = &MoveResult{Cart: cartView, Wishlist: wlView, Incremented: incremented}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !out.Incremented {
		s.Logger.Debug("cart line already at stock limit, left unchanged",
			zap.Int64("user_id", userID), zap.Int64("wishlist_item_id", wishlistItemID))
	}
	return out, nil
}

func ownedWishlistItem(ctx context.Context, tx store.Tx, userID, itemID int64) (*models.Wishlist, *models.WishlistItem, error) {
	wl, err := tx.GetOrCreateWishlist(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	item, err := tx.GetWishlistItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.WishlistID != wl.ID {
		return nil, nil, apperr.NewNotFound("wishlist item", itemID)
	}
	return wl, item, nil
}

func (s *CartService) renderWishlist(ctx context.Context, tx store.Tx, wl *models.Wishlist) (*WishlistView, error) {
	items, err := tx.ListWishlistItems(ctx, wl.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := loadProducts(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	quotes, err := quoteProducts(ctx, tx, s.Resolver, productList(products))
	if err != nil {
		return nil, err
	}

	view := &WishlistView{ID: wl.ID, UserID: wl.UserID, Items: make([]WishlistLine, 0, len(items))}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, WishlistLine{
			ItemID:  it.ID,
			Product: p,
			Pricing: quotes[p.ID],
			AddedAt: it.AddedAt,
		})
	}
	return view, nil
}
