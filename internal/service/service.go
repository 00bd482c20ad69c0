package service

import (
	"context"
	"errors"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/store"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Logger    *zap.Logger
	Store     store.Store
	Resolver  *pricing.Resolver
	Publisher notify.Publisher
}

// ProductView is a product with its price resolved at read time.
type ProductView struct {
	models.Product
	Pricing pricing.Quote `json:"pricing"`
}

// runTx executes fn in one store transaction and reports serialization
// failures as transient so the caller may retry the whole operation.
func runTx(ctx context.Context, st store.Store, op string, fn func(tx store.Tx) error) error {
	err := st.WithinTx(ctx, fn)
	if err != nil && errors.Is(err, store.ErrSerialization) {
		return apperr.NewTransient(op, err)
	}
	return err
}

// publishAll hands notifications to the publisher once the transaction that
// produced them has committed. Delivery failures are logged, never returned.
func publishAll(ctx context.Context, d Deps, batch []models.Notification) {
	for _, n := range batch {
		if err := d.Publisher.Publish(ctx, n); err != nil {
			d.Logger.Warn("failed to publish notification",
				zap.String("notification_id", n.ID),
				zap.String("type", string(n.Type)),
				zap.Int64("user_id", n.UserID),
				zap.Error(err),
			)
		}
	}
}

func quoteProducts(ctx context.Context, q store.Tx, r *pricing.Resolver, products []models.Product) (map[int64]pricing.Quote, error) {
	quotes := make(map[int64]pricing.Quote, len(products))
	if len(products) == 0 {
		return quotes, nil
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	sales, err := q.ListProductSalesForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := r.Now()
	for _, p := range products {
		quotes[p.ID] = pricing.CurrentPrice(p, sales, now)
	}
	return quotes, nil
}

func viewProducts(ctx context.Context, q store.Tx, r *pricing.Resolver, products []models.Product) ([]ProductView, error) {
	quotes, err := quoteProducts(ctx, q, r, products)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{Product: p, Pricing: quotes[p.ID]})
	}
	return out, nil
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.NewForbidden(actor.ID, "admin role required")
	}
	return nil
}

func requireOwner(actor models.Actor, p *models.Product) error {
	if p.SellerID != actor.ID {
		return apperr.NewForbidden(actor.ID, "not the product owner")
	}
	return nil
}
