package service

import (
	"fmt"
	"math"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// MaxStock is the largest quantity a product row can hold.
const MaxStock = math.MaxInt32

// AdmitCartQuantity is stock admission control: a cart line may never hold
// more units than the product has. Stock is only decremented at fulfillment,
// outside this module. p must have been read under a row lock in the same
// transaction as the cart write.
func AdmitCartQuantity(p *models.Product, requestedTotal int) error {
	if requestedTotal > p.Quantity {
		return apperr.NewInsufficientStock(p.ID, requestedTotal, p.Quantity)
	}
	return nil
}

// AdmitCartAddition admits adding units to a line already holding existing
// units and returns the new line total. The comparison is done against the
// remaining headroom so that huge additions cannot wrap around.
func AdmitCartAddition(p *models.Product, existing, add int) (int, error) {
	if add > p.Quantity-existing {
		requested := add
		if add <= math.MaxInt-existing {
			requested = existing + add
		}
		return 0, apperr.NewInsufficientStock(p.ID, requested, p.Quantity)
	}
	return existing + add, nil
}

// ApplyStockDelta adds delta (restock when positive) to the product's stock.
func ApplyStockDelta(p *models.Product, delta int) error {
	if delta > MaxStock-p.Quantity {
		return apperr.NewValidation("quantity", fmt.Sprintf("stock cannot exceed %d", MaxStock), delta)
	}
	next := p.Quantity + delta
	if next < 0 {
		return apperr.NewValidation("quantity", "stock cannot go below zero", next)
	}
	p.Quantity = next
	return nil
}
