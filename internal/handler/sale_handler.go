package handler

import (
	"net/http"
	"time"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createSaleEventRequest struct {
	NameAr        string    `json:"name_ar" binding:"required"`
	NameEn        string    `json:"name_en" binding:"required"`
	DescriptionAr string    `json:"description_ar"`
	DescriptionEn string    `json:"description_en"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

type createProductSaleRequest struct {
	ProductID          int64           `json:"product_id" binding:"required"`
	SaleEventID        int64           `json:"sale_event_id" binding:"required"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type updateProductSaleRequest struct {
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

// GET /api/sales/active
func (h *Handler) ActiveSales(c *gin.Context) {
	events, err := h.sales.ActiveSales(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": events, "count": len(events)})
}

// GET /api/sales/:id/products
func (h *Handler) ProductsInSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.sales.ProductsInSale(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows, "count": len(rows)})
}

// POST /api/admin/sales
func (h *Handler) CreateSaleEvent(c *gin.Context) {
	var req createSaleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	e, err := h.sales.CreateSaleEvent(c.Request.Context(), actorFrom(c), service.SaleEventInput{
		NameAr:        req.NameAr,
		NameEn:        req.NameEn,
		DescriptionAr: req.DescriptionAr,
		DescriptionEn: req.DescriptionEn,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// GET /api/seller/sales
func (h *Handler) SellerSales(c *gin.Context) {
	rows, err := h.sales.SellerSales(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows, "count": len(rows)})
}

// POST /api/seller/sales
func (h *Handler) CreateProductSale(c *gin.Context) {
	var req createProductSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	ps, err := h.sales.CreateProductSale(c.Request.Context(), actorFrom(c), service.ProductSaleInput{
		ProductID:          req.ProductID,
		SaleEventID:        req.SaleEventID,
		DiscountPercentage: req.DiscountPercentage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ps)
}

// PATCH /api/seller/sales/:id
func (h *Handler) UpdateProductSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateProductSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	ps, err := h.sales.UpdateProductSale(c.Request.Context(), actorFrom(c), id, service.ProductSaleUpdate{
		DiscountPercentage: req.DiscountPercentage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// DELETE /api/seller/sales/:id
func (h *Handler) DeleteProductSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.sales.DeleteProductSale(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
