package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SaleEventInput struct {
	NameAr        string
	NameEn        string
	DescriptionAr string
	DescriptionEn string
	StartDate     time.Time
	EndDate       time.Time
}

type ProductSaleInput struct {
	ProductID          int64
	SaleEventID        int64
	DiscountPercentage decimal.Decimal
}

// ProductSaleUpdate is a partial update of a product sale; nil fields are
// left untouched.
type ProductSaleUpdate struct {
	DiscountPercentage *decimal.Decimal
}

// SaleProductView is a product sale row with its product and the price that
// row alone would produce.
type SaleProductView struct {
	Sale            models.ProductSale `json:"sale"`
	Product         models.Product     `json:"product"`
	DiscountedPrice decimal.Decimal    `json:"discounted_price"`
	// WindowActive reflects the window copied when the product was attached.
	WindowActive bool `json:"is_active"`
}

type SaleService struct {
	Deps
}

func NewSaleService(d Deps) *SaleService {
	return &SaleService{Deps: d}
}

func (s *SaleService) CreateSaleEvent(ctx context.Context, actor models.Actor, in SaleEventInput) (*models.SaleEvent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.NameAr) == "" || strings.TrimSpace(in.NameEn) == "" {
		return nil, apperr.NewValidation("name", "both arabic and english names are required", "")
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, apperr.NewValidation("end_date", "must be after start_date", in.EndDate)
	}

	e := &models.SaleEvent{
		NameAr:        in.NameAr,
		NameEn:        in.NameEn,
		DescriptionAr: in.DescriptionAr,
		DescriptionEn: in.DescriptionEn,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		CreatedBy:     actor.ID,
		CreatedAt:     s.Resolver.Now(),
	}
	if err := s.Store.CreateSaleEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create sale event: %w", err)
	}

	s.Logger.Info("sale event created",
		zap.Int64("sale_event_id", e.ID),
		zap.Time("start", e.StartDate),
		zap.Time("end", e.EndDate),
	)
	return e, nil
}

func (s *SaleService) ActiveSales(ctx context.Context) ([]models.SaleEvent, error) {
	return s.ActiveSalesAt(ctx, s.Resolver.Now())
}

// ActiveSalesAt lists events whose window contains now.
func (s *SaleService) ActiveSalesAt(ctx context.Context, now time.Time) ([]models.SaleEvent, error) {
	events, err := s.Store.ListActiveSaleEvents(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sale events: %w", err)
	}
	return events, nil
}

func (s *SaleService) ProductsInSale(ctx context.Context, saleEventID int64) ([]SaleProductView, error) {
	return s.ProductsInSaleAt(ctx, saleEventID, s.Resolver.Now())
}

// ProductsInSaleAt lists the product sales of an event, filtered on the
// event's live window at now rather than the copy on each row.
func (s *SaleService) ProductsInSaleAt(ctx context.Context, saleEventID int64, now time.Time) ([]SaleProductView, error) {
	var out []SaleProductView
	err := runTx(ctx, s.Store, "products in sale", func(tx store.Tx) error {
		e, err := tx.GetSaleEvent(ctx, saleEventID)
		if err != nil {
			return err
		}
		if e == nil {
			return apperr.NewNotFound("sale event", saleEventID)
		}
		sales, err := tx.ListLiveProductSalesInEvent(ctx, saleEventID, now)
		if err != nil {
			return err
		}
		out, err = s.saleViews(ctx, tx, sales, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SellerSales lists every sale row attached to the actor's products.
func (s *SaleService) SellerSales(ctx context.Context, actor models.Actor) ([]SaleProductView, error) {
	if !actor.IsSeller() {
		return nil, apperr.NewForbidden(actor.ID, "seller role required")
	}
	var out []SaleProductView
	err := runTx(ctx, s.Store, "seller sales", func(tx store.Tx) error {
		sales, err := tx.ListProductSalesBySeller(ctx, actor.ID)
		if err != nil {
			return err
		}
		out, err = s.saleViews(ctx, tx, sales, s.Resolver.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SaleService) saleViews(ctx context.Context, tx store.Tx, sales []models.ProductSale, now time.Time) ([]SaleProductView, error) {
	out := make([]SaleProductView, 0, len(sales))
	for _, ps := range sales {
		p, err := tx.GetProduct(ctx, ps.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		out = append(out, SaleProductView{
			Sale:            ps,
			Product:         *p,
			DiscountedPrice: pricing.Apply(p.Price, ps.DiscountPercentage),
			WindowActive:    ps.WindowActiveAt(now),
		})
	}
	return out, nil
}

func validSalePercentage(pct decimal.Decimal) error {
	if !pct.IsPositive() || pct.GreaterThan(maxPercentage) {
		return apperr.NewValidation("discount_percentage", "must be greater than 0 and at most 100", pct)
	}
	if !fitsPercentageScale(pct) {
		return apperr.NewValidation("discount_percentage", "at most 2 decimal places", pct)
	}
	return nil
}

// CreateProductSale attaches the actor's product to a sale event. The event
// window is copied onto the row. Wishlist owners are told right away when
// the event is already running.
func (s *SaleService) CreateProductSale(ctx context.Context, actor models.Actor, in ProductSaleInput) (*models.ProductSale, error) {
	if err := validSalePercentage(in.DiscountPercentage); err != nil {
		return nil, err
	}

	var (
		out     models.ProductSale
		product models.Product
		batch   []models.Notification
	)
	now := s.Resolver.Now()
	err := runTx(ctx, s.Store, "create product sale", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", in.ProductID)
		}
		if err := requireOwner(actor, p); err != nil {
			return err
		}

		e, err := tx.GetSaleEvent(ctx, in.SaleEventID)
		if err != nil {
			return err
		}
		if e == nil {
			return apperr.NewNotFound("sale event", in.SaleEventID)
		}
		if now.After(e.EndDate) {
			return apperr.NewValidation("sale_event_id", "sale event has already ended", e.ID)
		}

		existing, err := tx.GetProductSaleByPair(ctx, p.ID, e.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.NewConflict(fmt.Sprintf("product %d is already part of sale event %d", p.ID, e.ID))
		}

		ps := &models.ProductSale{
			ProductID:          p.ID,
			SaleEventID:        e.ID,
			DiscountPercentage: in.DiscountPercentage,
			StartDate:          e.StartDate,
			EndDate:            e.EndDate,
			CreatedAt:          now,
		}
		if err := tx.CreateProductSale(ctx, ps); err != nil {
			if errors.Is(err, store.ErrUniqueViolation) {
				return apperr.NewConflict(fmt.Sprintf("product %d is already part of sale event %d", p.ID, e.ID))
			}
			return err
		}
		out = *ps
		product = *p

		if e.ActiveAt(now) && p.IsApproved {
			batch, err = s.wishlistAlerts(ctx, tx, product, out, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("product attached to sale event",
		zap.Int64("product_sale_id", out.ID),
		zap.Int64("product_id", out.ProductID),
		zap.Int64("sale_event_id", out.SaleEventID),
		zap.String("discount_percentage", out.DiscountPercentage.String()),
	)
	publishAll(ctx, s.Deps, batch)
	return &out, nil
}

func (s *SaleService) UpdateProductSale(ctx context.Context, actor models.Actor, id int64, upd ProductSaleUpdate) (*models.ProductSale, error) {
	if upd.DiscountPercentage == nil {
		return nil, apperr.NewValidation("update", "no fields provided", nil)
	}
	if err := validSalePercentage(*upd.DiscountPercentage); err != nil {
		return nil, err
	}

	var out models.ProductSale
	err := runTx(ctx, s.Store, "update product sale", func(tx store.Tx) error {
		ps, err := s.ownedSale(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductSalePercentage(ctx, ps.ID, *upd.DiscountPercentage); err != nil {
			return err
		}
		ps.DiscountPercentage = *upd.DiscountPercentage
		out = *ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SaleService) DeleteProductSale(ctx context.Context, actor models.Actor, id int64) error {
	return runTx(ctx, s.Store, "delete product sale", func(tx store.Tx) error {
		ps, err := s.ownedSale(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		return tx.DeleteProductSale(ctx, ps.ID)
	})
}

// ownedSale loads a product sale and locks its product, failing unless the
// actor sells that product.
func (s *SaleService) ownedSale(ctx context.Context, tx store.Tx, actor models.Actor, id int64) (*models.ProductSale, error) {
	ps, err := tx.GetProductSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, apperr.NewNotFound("product sale", id)
	}
	p, err := tx.GetProductForUpdate(ctx, ps.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NewNotFound("product", ps.ProductID)
	}
	if err := requireOwner(actor, p); err != nil {
		return nil, err
	}
	return ps, nil
}

func (s *SaleService) wishlistAlerts(ctx context.Context, tx store.Tx, p models.Product, ps models.ProductSale, now time.Time) ([]models.Notification, error) {
	users, err := tx.ListWishlistUsersForProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	batch := make([]models.Notification, 0, len(users))
	for _, userID := range users {
		batch = append(batch, notify.WishlistDiscount(userID, p, ps, now))
	}
	return batch, nil
}

// AnnounceStartedSales notifies wishlist owners of every product in a sale
// event whose start falls in (from, to]. It returns the number of
// notifications published.
func (s *SaleService) AnnounceStartedSales(ctx context.Context, from, to time.Time) (int, error) {
	var batch []models.Notification
	err := runTx(ctx, s.Store, "announce started sales", func(tx store.Tx) error {
		events, err := tx.ListSaleEventsStartedBetween(ctx, from, to)
		if err != nil {
			return err
		}
		for _, e := range events {
			sales, err := tx.ListProductSalesInEvent(ctx, e.ID)
			if err != nil {
				return err
			}
			for _, ps := range sales {
				p, err := tx.GetProduct(ctx, ps.ProductID)
				if err != nil {
					return err
				}
				if p == nil || !p.IsApproved {
					continue
				}
				alerts, err := s.wishlistAlerts(ctx, tx, *p, ps, e.StartDate)
				if err != nil {
					return err
				}
				batch = append(batch, alerts...)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(batch) > 0 {
		s.Logger.Info("announcing started sales",
			zap.Time("from", from), zap.Time("to", to), zap.Int("notifications", len(batch)))
	}
	publishAll(ctx, s.Deps, batch)
	return len(batch), nil
}
