package service

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCart(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "12.50", 5, true)

	cart, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.Items[0].MaxAvailable)

	cart, err = f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "same product merges into one line")
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems)
	assert.Equal(t, "62.5", cart.TotalPrice.String())

	_, err = f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	var stockErr *apperr.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	_, err = f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 0)
	assert.True(t, apperr.IsValidation(err))

	hidden := f.product(t, "1", 5, false)
	_, err = f.carts.AddToCart(f.ctx, buyer.ID, hidden.ID, 1)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.carts.AddToCart(f.ctx, buyer.ID, 999, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAddToCart_FailureRollsBack(t *testing.T) {
	f := newFixture(t)
	empty := f.product(t, "3", 0, true)

	_, err := f.carts.AddToCart(f.ctx, buyer.ID, empty.ID, 1)
	assert.True(t, apperr.IsInsufficientStock(err))

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestAddToCart_HugeQuantityDoesNotWrap(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 5, true)

	_, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)

	_, err = f.carts.AddToCart(f.ctx, buyer.ID, p.ID, math.MaxInt)
	assert.True(t, apperr.IsInsufficientStock(err), "got %v", err)

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 1, cart.TotalItems)
	assert.Equal(t, "10", cart.TotalPrice.String())
}

func TestAddToCart_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	const stock = 10
	p := f.product(t, "1", stock, true)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
			if err == nil {
				accepted.Add(1)
				return
			}
			assert.True(t, apperr.IsInsufficientStock(err), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(stock), accepted.Load())

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, stock, cart.Items[0].Quantity)
}

func TestAddToCart_AfterRestock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "2", 5, true)

	_, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 5)
	require.NoError(t, err)
	_, err = f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	assert.True(t, apperr.IsInsufficientStock(err))

	_, err = f.catalog.AdjustStock(f.ctx, seller, p.ID, 1)
	require.NoError(t, err)
	cart, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, cart.Items[0].Quantity)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "4", 3, true)

	cart, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ItemID

	cart, err = f.carts.UpdateCartItem(f.ctx, buyer.ID, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = f.carts.UpdateCartItem(f.ctx, buyer.ID, itemID, 4)
	assert.True(t, apperr.IsInsufficientStock(err))

	_, err = f.carts.UpdateCartItem(f.ctx, buyer.ID, itemID, 0)
	assert.True(t, apperr.IsValidation(err))

	_, err = f.carts.UpdateCartItem(f.ctx, 555, itemID, 1)
	assert.True(t, apperr.IsNotFound(err), "another user's item")

	_, err = f.carts.RemoveFromCart(f.ctx, 555, itemID)
	assert.True(t, apperr.IsNotFound(err))

	cart, err = f.carts.RemoveFromCart(f.ctx, buyer.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartTotals(t *testing.T) {
	f := newFixture(t)
	plain := f.product(t, "10.00", 10, true)
	onSale := f.product(t, "19.99", 10, true)
	e := f.event(t, t0.Add(-time.Hour), t0.Add(time.Hour))
	f.attach(t, onSale.ID, e.ID, "15")

	_, err := f.carts.AddToCart(f.ctx, buyer.ID, plain.ID, 2)
	require.NoError(t, err)
	cart, err := f.carts.AddToCart(f.ctx, buyer.ID, onSale.ID, 3)
	require.NoError(t, err)

	// 2 * 10.00 + 3 * 16.99
	assert.Equal(t, 5, cart.TotalItems)
	assert.Equal(t, "70.97", cart.TotalPrice.String())
	assert.Equal(t, "9", cart.TotalDiscount.String())
	assert.Equal(t, "50.97", cart.Items[1].LineTotal.String())

	f.clock.Advance(2 * time.Hour)
	cart, err = f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "79.97", cart.TotalPrice.String(), "repriced once the sale ends")
	assert.True(t, cart.TotalDiscount.IsZero())
}

func TestWishlist(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "8", 2, true)

	wl, err := f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, wl.Items, 1)

	_, err = f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	assert.True(t, apperr.IsConflict(err))

	hidden := f.product(t, "8", 2, false)
	_, err = f.carts.AddToWishlist(f.ctx, buyer.ID, hidden.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.carts.RemoveFromWishlist(f.ctx, 555, wl.Items[0].ItemID)
	assert.True(t, apperr.IsNotFound(err))

	wl, err = f.carts.RemoveFromWishlist(f.ctx, buyer.ID, wl.Items[0].ItemID)
	require.NoError(t, err)
	assert.Empty(t, wl.Items)

	wl, err = f.carts.GetWishlist(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, wl.Items)
}

func TestMoveToCart(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "8", 2, true)

	wishOnce := func() int64 {
		wl, err := f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
		require.NoError(t, err)
		return wl.Items[0].ItemID
	}

	res, err := f.carts.MoveToCart(f.ctx, buyer.ID, wishOnce())
	require.NoError(t, err)
	assert.True(t, res.Incremented)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 1, res.Cart.Items[0].Quantity)
	assert.Empty(t, res.Wishlist.Items)

	res, err = f.carts.MoveToCart(f.ctx, buyer.ID, wishOnce())
	require.NoError(t, err)
	assert.True(t, res.Incremented)
	assert.Equal(t, 2, res.Cart.Items[0].Quantity)

	res, err = f.carts.MoveToCart(f.ctx, buyer.ID, wishOnce())
	require.NoError(t, err)
	assert.False(t, res.Incremented, "already at stock limit")
	assert.Equal(t, 2, res.Cart.Items[0].Quantity)
	assert.Empty(t, res.Wishlist.Items, "wishlist item removed regardless")

	_, err = f.carts.MoveToCart(f.ctx, 555, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMoveToCart_NoStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "8", 0, true)

	wl, err := f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	require.NoError(t, err)

	_, err = f.carts.MoveToCart(f.ctx, buyer.ID, wl.Items[0].ItemID)
	assert.True(t, apperr.IsInsufficientStock(err))

	wl, err = f.carts.GetWishlist(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, wl.Items, 1, "failed move leaves the wishlist untouched")
}

func TestMoveToCart_UnapprovedProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "8", 5, true)

	wl, err := f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	require.NoError(t, err)
	_, err = f.catalog.DisapproveProduct(f.ctx, admin, p.ID, "", "counterfeit")
	require.NoError(t, err)

	_, err = f.carts.MoveToCart(f.ctx, buyer.ID, wl.Items[0].ItemID)
	assert.True(t, apperr.IsNotFound(err))

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	wl, err = f.carts.GetWishlist(f.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, wl.Items, 1)
}
