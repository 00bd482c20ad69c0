package service

import (
	"math"
	"testing"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateProduct(f.ctx, buyer, ProductInput{NameAr: "a", NameEn: "a", Price: dec("1"), Quantity: 1})
	assert.True(t, apperr.IsForbidden(err))

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing name", ProductInput{NameEn: "x", Price: dec("1")}},
		{"zero price", ProductInput{NameAr: "x", NameEn: "x", Price: dec("0")}},
		{"negative quantity", ProductInput{NameAr: "x", NameEn: "x", Price: dec("1"), Quantity: -1}},
		{"quantity beyond column range", ProductInput{NameAr: "x", NameEn: "x", Price: dec("1"), Quantity: MaxStock + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(f.ctx, seller, tt.in)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	p := f.product(t, "25.50", 3, false)
	assert.False(t, p.IsApproved)
	assert.Equal(t, seller.ID, p.SellerID)

	_, err = f.catalog.GetProduct(f.ctx, p.ID)
	assert.True(t, apperr.IsNotFound(err), "unapproved products are hidden")
}

func TestApproveProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 1, false)

	_, err := f.catalog.ApproveProduct(f.ctx, seller, p.ID)
	assert.True(t, apperr.IsForbidden(err))

	_, err = f.catalog.ApproveProduct(f.ctx, admin, 999)
	assert.True(t, apperr.IsNotFound(err))

	approved, err := f.catalog.ApproveProduct(f.ctx, admin, p.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.ID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(t0))

	sent := f.sentOfType(models.NotificationProductApproved)
	require.Len(t, sent, 1)
	assert.Equal(t, seller.ID, sent[0].UserID)
	assert.Equal(t, p.ID, sent[0].SubjectID)

	_, err = f.catalog.ApproveProduct(f.ctx, admin, p.ID)
	assert.True(t, apperr.IsValidation(err))

	view, err := f.catalog.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", view.Pricing.Price.String())
}

func TestDisapproveProduct(t *testing.T) {
	f := newFixture(t)

	t.Run("previously approved notifies", func(t *testing.T) {
		p := f.product(t, "10", 1, true)
		out, err := f.catalog.DisapproveProduct(f.ctx, admin, p.ID, "صور غير واضحة", "blurry photos")
		require.NoError(t, err)
		assert.False(t, out.IsApproved)
		assert.Nil(t, out.ApprovedBy)
		assert.Equal(t, "blurry photos", out.DisapprovalReasonEn)

		sent := f.sentOfType(models.NotificationProductDisapproved)
		require.Len(t, sent, 1)
		assert.Equal(t, "صور غير واضحة", sent[0].ExtraData["disapproval_reason"])

		_, err = f.catalog.GetProduct(f.ctx, p.ID)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("never approved stays silent", func(t *testing.T) {
		before := len(f.sentOfType(models.NotificationProductDisapproved))
		p := f.product(t, "10", 1, false)
		_, err := f.catalog.DisapproveProduct(f.ctx, admin, p.ID, "", "wrong category")
		require.NoError(t, err)
		assert.Len(t, f.sentOfType(models.NotificationProductDisapproved), before)
	})

	t.Run("reason required", func(t *testing.T) {
		p := f.product(t, "10", 1, true)
		_, err := f.catalog.DisapproveProduct(f.ctx, admin, p.ID, " ", "")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("admins only", func(t *testing.T) {
		p := f.product(t, "10", 1, true)
		_, err := f.catalog.DisapproveProduct(f.ctx, seller, p.ID, "", "no")
		assert.True(t, apperr.IsForbidden(err))
	})
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "10", 0, true)
	b := f.product(t, "20", 5, true)
	f.product(t, "30", 5, false)

	all, err := f.catalog.ListProducts(f.ctx, store.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")
	assert.Equal(t, a.ID, all[1].ID)

	notApproved := false
	inStock, err := f.catalog.ListProducts(f.ctx, store.ProductFilter{InStock: true, Approved: &notApproved})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, b.ID, inStock[0].ID)

	mine, err := f.catalog.SellerProducts(f.ctx, seller, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	pending, err := f.catalog.SellerProducts(f.ctx, seller, ptr(false))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSetStandaloneDiscount(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "100", 5, true)

	_, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{})
	assert.True(t, apperr.IsValidation(err), "empty update")

	_, err = f.catalog.SetStandaloneDiscount(f.ctx, rival, p.ID, StandaloneDiscountUpdate{Enabled: ptr(true), Percentage: ptr(dec("10"))})
	assert.True(t, apperr.IsForbidden(err))

	invalid := []struct {
		name string
		upd  StandaloneDiscountUpdate
	}{
		{"enabled without percentage", StandaloneDiscountUpdate{Enabled: ptr(true)}},
		{"percentage below one", StandaloneDiscountUpdate{Enabled: ptr(true), Percentage: ptr(dec("0.5"))}},
		{"percentage above hundred", StandaloneDiscountUpdate{Enabled: ptr(true), Percentage: ptr(dec("101"))}},
		{"percentage with three decimals", StandaloneDiscountUpdate{Enabled: ptr(true), Percentage: ptr(dec("12.345"))}},
		{"start after end", StandaloneDiscountUpdate{
			Enabled: ptr(true), Percentage: ptr(dec("10")),
			Start: ptr(t0.Add(time.Hour)), End: ptr(t0),
		}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, tt.upd)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	view, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{
		Enabled:    ptr(true),
		Percentage: ptr(dec("20")),
		End:        ptr(t0.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceStandalone, view.Pricing.Source)
	assert.Equal(t, "80", view.Pricing.Price.String())

	view, err = f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{ClearEnd: true})
	require.NoError(t, err)
	assert.Nil(t, view.StandaloneDiscountEnd)

	f.clock.Advance(2 * time.Hour)
	got, err := f.catalog.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "80", got.Pricing.Price.String(), "open-ended discount keeps applying")

	view, err = f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{Enabled: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceNone, view.Pricing.Source)
	assert.True(t, view.Pricing.Price.Equal(dec("100")))
}

func TestSetStandaloneDiscount_ActiveSaleConflict(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "100", 5, true)
	e := f.event(t, t0.Add(-time.Hour), t0.Add(time.Hour))
	f.attach(t, p.ID, e.ID, "30")

	_, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{
		Enabled: ptr(true), Percentage: ptr(dec("10")),
	})
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	// once the event is over the product is free again
	f.clock.Set(t0.Add(2 * time.Hour))
	view, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, p.ID, StandaloneDiscountUpdate{
		Enabled: ptr(true), Percentage: ptr(dec("10")),
	})
	require.NoError(t, err)
	assert.Equal(t, "90", view.Pricing.Price.String())
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "5", 3, true)

	out, err := f.catalog.AdjustStock(f.ctx, seller, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Quantity)

	out, err = f.catalog.AdjustStock(f.ctx, admin, p.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Quantity)

	_, err = f.catalog.AdjustStock(f.ctx, seller, p.ID, -1)
	assert.True(t, apperr.IsValidation(err))

	_, err = f.catalog.AdjustStock(f.ctx, seller, p.ID, math.MaxInt)
	assert.True(t, apperr.IsValidation(err), "restock beyond the column range")

	_, err = f.catalog.AdjustStock(f.ctx, rival, p.ID, 1)
	assert.True(t, apperr.IsForbidden(err))

	_, err = f.catalog.AdjustStock(f.ctx, seller, 404, 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 5, true)
	other := f.product(t, "4", 5, true)
	e := f.event(t, t0.Add(-time.Hour), t0.Add(time.Hour))
	f.attach(t, p.ID, e.ID, "50")
	f.attach(t, other.ID, e.ID, "25")

	_, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddToCart(f.ctx, buyer.ID, other.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	require.NoError(t, err)
	_, err = f.carts.AddToWishlist(f.ctx, buyer.ID, other.ID)
	require.NoError(t, err)

	t.Run("missing product", func(t *testing.T) {
		err := f.catalog.DeleteProduct(f.ctx, seller, 999)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("only the owner", func(t *testing.T) {
		assert.True(t, apperr.IsForbidden(f.catalog.DeleteProduct(f.ctx, rival, p.ID)))
		assert.True(t, apperr.IsForbidden(f.catalog.DeleteProduct(f.ctx, admin, p.ID)))
	})

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, seller, p.ID))

	_, err = f.catalog.GetProduct(f.ctx, p.ID)
	assert.True(t, apperr.IsNotFound(err))

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, other.ID, cart.Items[0].Product.ID)
	assert.Equal(t, 1, cart.TotalItems)
	assert.Equal(t, "3", cart.TotalPrice.String())
	assert.Equal(t, "1", cart.TotalDiscount.String())

	wl, err := f.carts.GetWishlist(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, wl.Items, 1)
	assert.Equal(t, other.ID, wl.Items[0].Product.ID)

	rows, err := f.sales.SellerSales(f.ctx, seller)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, other.ID, rows[0].Product.ID)

	rows, err = f.sales.ProductsInSale(f.ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, apperr.IsNotFound(f.catalog.DeleteProduct(f.ctx, seller, p.ID)), "already deleted")
}

func TestRendersSkipDanglingLines(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 5, true)

	view, err := f.carts.AddToCart(f.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateCartItem(f.ctx, &models.CartItem{CartID: view.ID, ProductID: 777, Quantity: 3}))

	wl, err := f.carts.AddToWishlist(f.ctx, buyer.ID, p.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateWishlistItem(f.ctx, &models.WishlistItem{WishlistID: wl.ID, ProductID: 777}))

	cart, err := f.carts.GetCart(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.TotalItems)
	assert.Equal(t, "10", cart.TotalPrice.String())

	wl, err = f.carts.GetWishlist(f.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, wl.Items, 1)
	assert.Equal(t, p.ID, wl.Items[0].Product.ID)
}

func TestUnapprovedProducts(t *testing.T) {
	f := newFixture(t)
	first := f.product(t, "10", 1, false)
	f.product(t, "10", 1, true)
	f.clock.Advance(time.Minute)
	second := f.product(t, "10", 1, false)

	_, err := f.catalog.UnapprovedProducts(f.ctx, seller)
	assert.True(t, apperr.IsForbidden(err))

	queue, err := f.catalog.UnapprovedProducts(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, second.ID, queue[0].ID, "newest first")
	assert.Equal(t, first.ID, queue[1].ID)

	_, err = f.catalog.ApproveProduct(f.ctx, admin, first.ID)
	require.NoError(t, err)
	queue, err = f.catalog.UnapprovedProducts(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)
}

func TestListProducts_DiscountAndSort(t *testing.T) {
	f := newFixture(t)
	cheap := f.product(t, "5", 1, true)
	f.clock.Advance(time.Minute)
	mid := f.product(t, "20", 1, true)
	f.clock.Advance(time.Minute)
	dear := f.product(t, "40", 1, true)

	_, err := f.catalog.SetStandaloneDiscount(f.ctx, seller, cheap.ID, StandaloneDiscountUpdate{
		Enabled: ptr(true), Percentage: ptr(dec("10")),
	})
	require.NoError(t, err)
	e := f.event(t, t0.Add(-time.Hour), t0.Add(time.Hour))
	f.attach(t, dear.ID, e.ID, "50")

	ids := func(views []ProductView) []int64 {
		out := make([]int64, 0, len(views))
		for _, v := range views {
			out = append(out, v.ID)
		}
		return out
	}

	all, err := f.catalog.ListProducts(f.ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{dear.ID, mid.ID, cheap.ID}, ids(all))

	byPrice, err := f.catalog.ListProducts(f.ctx, store.ProductFilter{SortBy: store.SortPrice, SortAsc: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{cheap.ID, mid.ID, dear.ID}, ids(byPrice))

	discounted, err := f.catalog.ListProducts(f.ctx, store.ProductFilter{DiscountedAt: f.clock.Now(), SortBy: store.SortPrice})
	require.NoError(t, err)
	require.Equal(t, []int64{dear.ID, cheap.ID}, ids(discounted))
	assert.Equal(t, "20", discounted[0].Pricing.Price.String())

	_, err = f.catalog.ListProducts(f.ctx, store.ProductFilter{SortBy: "name"})
	assert.True(t, apperr.IsValidation(err))
}
