// Package pricing resolves the authoritative price of a product at an instant
// from its standalone discount and the sale events it is attached to.
package pricing

import (
	"time"

	"storefront/internal/clock"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

type Source string

const (
	SourceNone       Source = "none"
	SourceStandalone Source = "standalone"
	SourceSale       Source = "sale"
)

// minor-unit precision of the currency
const pricePlaces = 2

var hundred = decimal.NewFromInt(100)

type Quote struct {
	BasePrice   decimal.Decimal     `json:"price"`
	Price       decimal.Decimal     `json:"current_price"`
	Source      Source              `json:"discount_source"`
	Percentage  decimal.NullDecimal `json:"discount_percentage"`
	SaleEventID int64               `json:"sale_event_id,omitempty"`
}

func (q Quote) HasDiscount() bool {
	return q.Source != SourceNone
}

// Discount is the per-unit amount taken off the base price.
func (q Quote) Discount() decimal.Decimal {
	if !q.HasDiscount() {
		return decimal.Zero
	}
	return q.BasePrice.Sub(q.Price)
}

// Apply returns base * (100 - pct) / 100 rounded half-up to the currency's
// minor unit.
func Apply(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(hundred.Sub(pct)).Div(hundred).Round(pricePlaces)
}

// StandaloneActive reports whether the product's own discount applies at now.
// Open-ended bounds are nil.
func StandaloneActive(p models.Product, now time.Time) bool {
	if !p.HasStandaloneDiscount || !p.StandaloneDiscountPercentage.Valid {
		return false
	}
	if p.StandaloneDiscountStart != nil && now.Before(*p.StandaloneDiscountStart) {
		return false
	}
	if p.StandaloneDiscountEnd != nil && now.After(*p.StandaloneDiscountEnd) {
		return false
	}
	return true
}

// ActiveSale picks the sale row that applies at now, judged on the live
// window of the parent event. With several live sales the largest
// percentage wins and ties go to the lowest event id.
func ActiveSale(productID int64, sales []models.ProductSale, now time.Time) (models.ProductSale, bool) {
	var (
		best  models.ProductSale
		found bool
	)
	for _, s := range sales {
		if s.ProductID != productID || !s.Event.ActiveAt(now) {
			continue
		}
		if !found ||
			s.DiscountPercentage.GreaterThan(best.DiscountPercentage) ||
			(s.DiscountPercentage.Equal(best.DiscountPercentage) && s.SaleEventID < best.SaleEventID) {
			best = s
			found = true
		}
	}
	return best, found
}

// CurrentPrice computes the price of p at now. A live sale beats the
// standalone discount when both apply.
func CurrentPrice(p models.Product, sales []models.ProductSale, now time.Time) Quote {
	q := Quote{
		BasePrice: p.Price,
		Price:     p.Price,
		Source:    SourceNone,
	}

	if sale, ok := ActiveSale(p.ID, sales, now); ok {
		q.Price = Apply(p.Price, sale.DiscountPercentage)
		q.Source = SourceSale
		q.Percentage = decimal.NewNullDecimal(sale.DiscountPercentage)
		q.SaleEventID = sale.SaleEventID
		return q
	}

	if StandaloneActive(p, now) {
		pct := p.StandaloneDiscountPercentage.Decimal
		q.Price = Apply(p.Price, pct)
		q.Source = SourceStandalone
		q.Percentage = decimal.NewNullDecimal(pct)
	}
	return q
}

// Resolver binds CurrentPrice to a clock.
type Resolver struct {
	clock clock.Clock
}

func NewResolver(c clock.Clock) *Resolver {
	return &Resolver{clock: c}
}

func (r *Resolver) Now() time.Time {
	return r.clock.Now()
}

func (r *Resolver) Quote(p models.Product, sales []models.ProductSale) Quote {
	return CurrentPrice(p, sales, r.clock.Now())
}
