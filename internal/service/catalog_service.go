package service

import (
	"context"
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

var maxPercentage = decimal.NewFromInt(100)

// percentageScale is the number of fractional digits a stored percentage keeps.
const percentageScale = 2

func fitsPercentageScale(pct decimal.Decimal) bool {
	return pct.Equal(pct.Round(percentageScale))
}

type ProductInput struct {
	CategoryID    int64
	NameAr        string
	NameEn        string
	DescriptionAr string
	DescriptionEn string
	Price         decimal.Decimal
	Quantity      int
}

// StandaloneDiscountUpdate is a partial update of a product's own discount.
// Nil fields are left untouched; the Clear flags reset a bound to open-ended.
type StandaloneDiscountUpdate struct {
	Enabled    *bool
	Percentage *decimal.Decimal
	Start      *time.Time
	End        *time.Time
	ClearStart bool
	ClearEnd   bool
}

func (u StandaloneDiscountUpdate) empty() bool {
	return u.Enabled == nil && u.Percentage == nil && u.Start == nil && u.End == nil && !u.ClearStart && !u.ClearEnd
}

type CatalogService struct {
	Deps
}

func NewCatalogService(d Deps) *CatalogService {
	return &CatalogService{Deps: d}
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor models.Actor, in ProductInput) (*models.Product, error) {
	if !actor.IsSeller() {
		return nil, apperr.NewForbidden(actor.ID, "seller role required")
	}
	if strings.TrimSpace(in.NameAr) == "" || strings.TrimSpace(in.NameEn) == "" {
		return nil, apperr.NewValidation("name", "both arabic and english names are required", "")
	}
	if !in.Price.IsPositive() {
		return nil, apperr.NewValidation("price", "must be greater than zero", in.Price)
	}
	if in.Quantity < 0 || in.Quantity > MaxStock {
		return nil, apperr.NewValidation("quantity", fmt.Sprintf("must be between 0 and %d", MaxStock), in.Quantity)
	}

	p := &models.Product{
		SellerID:      actor.ID,
		CategoryID:    in.CategoryID,
		NameAr:        in.NameAr,
		NameEn:        in.NameEn,
		DescriptionAr: in.DescriptionAr,
		DescriptionEn: in.DescriptionEn,
		Price:         in.Price.Round(2),
		Quantity:      in.Quantity,
		CreatedAt:     s.Resolver.Now(),
	}
	if err := s.Store.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.Logger.Info("product created, awaiting approval",
		zap.Int64("product_id", p.ID), zap.Int64("seller_id", p.SellerID))
	return p, nil
}

// GetProduct returns an approved product with its current price.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	var out *ProductView
	err := runTx(ctx, s.Store, "get product", func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if p == nil || !p.IsApproved {
			return apperr.NewNotFound("product", id)
		}
		views, err := viewProducts(ctx, tx, s.Resolver, []models.Product{*p})
		if err != nil {
			return err
		}
		out = &views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts lists the public catalog. Unapproved products are never
// included whatever the filter says.
func (s *CatalogService) ListProducts(ctx context.Context, f store.ProductFilter) ([]ProductView, error) {
	if f.SortBy != "" && !f.SortBy.Valid() {
		return nil, apperr.NewValidation("sort_by", "must be price or created_at", string(f.SortBy))
	}
	approved := true
	f.Approved = &approved
	return s.list(ctx, f)
}

func (s *CatalogService) SellerProducts(ctx context.Context, actor models.Actor, approved *bool) ([]ProductView, error) {
	if !actor.IsSeller() {
		return nil, apperr.NewForbidden(actor.ID, "seller role required")
	}
	return s.list(ctx, store.ProductFilter{SellerID: actor.ID, Approved: approved})
}

// UnapprovedProducts is the moderation queue, newest first.
func (s *CatalogService) UnapprovedProducts(ctx context.Context, actor models.Actor) ([]ProductView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	approved := false
	return s.list(ctx, store.ProductFilter{Approved: &approved})
}

func (s *CatalogService) list(ctx context.Context, f store.ProductFilter) ([]ProductView, error) {
	var out []ProductView
	err := runTx(ctx, s.Store, "list products", func(tx store.Tx) error {
		products, err := tx.ListProducts(ctx, f)
		if err != nil {
			return err
		}
		out, err = viewProducts(ctx, tx, s.Resolver, products)
		return err
	})
	return out, err
}

func (s *CatalogService) ApproveProduct(ctx context.Context, actor models.Actor, id int64) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var out models.Product
	err := runTx(ctx, s.Store, "approve product", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", id)
		}
		if p.IsApproved {
			return apperr.NewValidation("is_approved", "product is already approved", true)
		}

		now := s.Resolver.Now()
		approver := actor.ID
		p.IsApproved = true
		p.ApprovedBy = &approver
		p.ApprovedAt = &now
		p.DisapprovalReasonAr = ""
		p.DisapprovalReasonEn = ""
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("product approved", zap.Int64("product_id", id), zap.Int64("admin_id", actor.ID))
	publishAll(ctx, s.Deps, []models.Notification{notify.ProductApproved(out, s.Resolver.Now())})
	return &out, nil
}

// DisapproveProduct withdraws a product from the catalog. The seller is only
// notified when the product had been approved before.
func (s *CatalogService) DisapproveProduct(ctx context.Context, actor models.Actor, id int64, reasonAr, reasonEn string) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reasonAr) == "" && strings.TrimSpace(reasonEn) == "" {
		return nil, apperr.NewValidation("disapproval_reason", "a reason is required", "")
	}

	var (
		out         models.Product
		wasApproved bool
	)
	err := runTx(ctx, s.Store, "disapprove product", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", id)
		}

		wasApproved = p.IsApproved
		p.IsApproved = false
		p.ApprovedBy = nil
		p.ApprovedAt = nil
		p.DisapprovalReasonAr = reasonAr
		p.DisapprovalReasonEn = reasonEn
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("product disapproved",
		zap.Int64("product_id", id), zap.Int64("admin_id", actor.ID), zap.Bool("was_approved", wasApproved))
	if wasApproved {
		publishAll(ctx, s.Deps, []models.Notification{notify.ProductDisapproved(out, s.Resolver.Now())})
	}
	return &out, nil
}

// SetStandaloneDiscount edits the product's own discount. Enabling it is
// refused while the product takes part in a running sale event.
func (s *CatalogService) SetStandaloneDiscount(ctx context.Context, actor models.Actor, id int64, upd StandaloneDiscountUpdate) (*ProductView, error) {
	if upd.empty() {
		return nil, apperr.NewValidation("update", "no fields provided", nil)
	}

	var out *ProductView
	err := runTx(ctx, s.Store, "set standalone discount", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", id)
		}
		if err := requireOwner(actor, p); err != nil {
			return err
		}

		now := s.Resolver.Now()
		if upd.Enabled != nil && *upd.Enabled {
			sales, err := tx.ListProductSalesForProducts(ctx, []int64{p.ID})
			if err != nil {
				return err
			}
			if sale, ok := pricing.ActiveSale(p.ID, sales, now); ok {
				return apperr.NewConflict(fmt.Sprintf(
					"product is part of active sale event %d; standalone discount cannot be enabled", sale.SaleEventID))
			}
		}

		if upd.Enabled != nil {
			p.HasStandaloneDiscount = *upd.Enabled
		}
		if upd.Percentage != nil {
			p.StandaloneDiscountPercentage = decimal.NewNullDecimal(*upd.Percentage)
		}
		if upd.ClearStart {
			p.StandaloneDiscountStart = nil
		} else if upd.Start != nil {
			start := *upd.Start
			p.StandaloneDiscountStart = &start
		}
		if upd.ClearEnd {
			p.StandaloneDiscountEnd = nil
		} else if upd.End != nil {
			end := *upd.End
			p.StandaloneDiscountEnd = &end
		}

		if err := validateStandalone(p); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}

		views, err := viewProducts(ctx, tx, s.Resolver, []models.Product{*p})
		if err != nil {
			return err
		}
		out = &views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateStandalone checks the merged discount fields of p.
func validateStandalone(p *models.Product) error {
	if p.StandaloneDiscountPercentage.Valid {
		pct := p.StandaloneDiscountPercentage.Decimal
		if pct.LessThan(decimal.NewFromInt(1)) || pct.GreaterThan(maxPercentage) {
			return apperr.NewValidation("standalone_discount_percentage", "must be between 1 and 100", pct)
		}
		if !fitsPercentageScale(pct) {
			return apperr.NewValidation("standalone_discount_percentage", "at most 2 decimal places", pct)
		}
	}
	if p.HasStandaloneDiscount && !p.StandaloneDiscountPercentage.Valid {
		return apperr.NewValidation("standalone_discount_percentage", "required when the discount is enabled", nil)
	}
	if p.StandaloneDiscountStart != nil && p.StandaloneDiscountEnd != nil &&
		!p.StandaloneDiscountStart.Before(*p.StandaloneDiscountEnd) {
		return apperr.NewValidation("standalone_discount_end", "must be after the start", *p.StandaloneDiscountEnd)
	}
	return nil
}

// AdjustStock changes the stock by delta. Only the owning seller or an admin
// may do so.
func (s *CatalogService) AdjustStock(ctx context.Context, actor models.Actor, id int64, delta int) (*models.Product, error) {
	var out models.Product
	err := runTx(ctx, s.Store, "adjust stock", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", id)
		}
		if !actor.IsAdmin() {
			if err := requireOwner(actor, p); err != nil {
				return err
			}
		}
		if err := ApplyStockDelta(p, delta); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("stock adjusted",
		zap.Int64("product_id", id), zap.Int("delta", delta), zap.Int("quantity", out.Quantity))
	return &out, nil
}

// DeleteProduct removes one of the actor's products. Its sale attachments
// and every cart and wishlist line holding it go with it.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor models.Actor, id int64) error {
	err := runTx(ctx, s.Store, "delete product", func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("product", id)
		}
		if err := requireOwner(actor, p); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("product deleted", zap.Int64("product_id", id), zap.Int64("seller_id", actor.ID))
	return nil
}
