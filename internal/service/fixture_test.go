package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/clock"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	t0     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	admin  = models.Actor{ID: 1, Role: models.RoleAdmin}
	seller = models.Actor{ID: 10, Role: models.RoleSeller}
	rival  = models.Actor{ID: 11, Role: models.RoleSeller}
	buyer  = models.Actor{ID: 100, Role: models.RoleBuyer}
)

type fixture struct {
	ctx     context.Context
	store   *store.MemoryStore
	clock   *clock.Fixed
	sent    *notify.Recorder
	catalog *CatalogService
	sales   *SaleService
	carts   *CartService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFixed(t0)
	st := store.NewMemoryStoreWithClock(clk)
	rec := &notify.Recorder{}
	d := Deps{
		Logger:    zap.NewNop(),
		Store:     st,
		Resolver:  pricing.NewResolver(clk),
		Publisher: rec,
	}
	return &fixture{
		ctx:     context.Background(),
		store:   st,
		clock:   clk,
		sent:    rec,
		catalog: NewCatalogService(d),
		sales:   NewSaleService(d),
		carts:   NewCartService(d),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// product creates a product owned by seller; approved products are
// moderated by admin.
func (f *fixture) product(t *testing.T, price string, qty int, approved bool) models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, seller, ProductInput{
		NameAr:   "منتج",
		NameEn:   "Product",
		Price:    dec(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	if !approved {
		return *p
	}
	p, err = f.catalog.ApproveProduct(f.ctx, admin, p.ID)
	require.NoError(t, err)
	return *p
}

func (f *fixture) event(t *testing.T, start, end time.Time) models.SaleEvent {
	t.Helper()
	e, err := f.sales.CreateSaleEvent(f.ctx, admin, SaleEventInput{
		NameAr:    "تخفيضات",
		NameEn:    "Sale",
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return *e
}

func (f *fixture) attach(t *testing.T, productID, eventID int64, pct string) models.ProductSale {
	t.Helper()
	ps, err := f.sales.CreateProductSale(f.ctx, seller, ProductSaleInput{
		ProductID:          productID,
		SaleEventID:        eventID,
		DiscountPercentage: dec(pct),
	})
	require.NoError(t, err)
	return *ps
}

func (f *fixture) sentOfType(typ models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range f.sent.Sent() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
