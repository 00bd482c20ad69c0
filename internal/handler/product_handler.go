package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	CategoryID    int64           `json:"category_id"`
	NameAr        string          `json:"name_ar" binding:"required"`
	NameEn        string          `json:"name_en" binding:"required"`
	DescriptionAr string          `json:"description_ar"`
	DescriptionEn string          `json:"description_en"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
}

type stockRequest struct {
	Delta int `json:"delta"`
}

type disapproveRequest struct {
	ReasonAr string `json:"disapproval_reason_ar"`
	ReasonEn string `json:"disapproval_reason_en"`
}

// standaloneDiscountRequest is a partial update; absent fields are kept.
type standaloneDiscountRequest struct {
	HasStandaloneDiscount *bool            `json:"has_standalone_discount"`
	Percentage            *decimal.Decimal `json:"standalone_discount_percentage"`
	Start                 *time.Time       `json:"standalone_discount_start"`
	End                   *time.Time       `json:"standalone_discount_end"`
	ClearStart            bool             `json:"clear_standalone_discount_start"`
	ClearEnd              bool             `json:"clear_standalone_discount_end"`
}

// GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	f, ok := productFilter(c, h.catalog.Resolver.Now())
	if !ok {
		return
	}
	products, err := h.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func productFilter(c *gin.Context, now time.Time) (store.ProductFilter, bool) {
	var f store.ProductFilter

	ints := map[string]*int{"limit": &f.Limit, "offset": &f.Offset}
	for key, dst := range ints {
		if v := c.Query(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(c, "Invalid "+key)
				return f, false
			}
			*dst = n
		}
	}
	if v := c.Query("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "Invalid category")
			return f, false
		}
		f.CategoryID = id
	}
	for key, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if v := c.Query(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				badRequest(c, "Invalid "+key)
				return f, false
			}
			*dst = &d
		}
	}
	f.InStock = c.Query("in_stock") == "true"
	if c.Query("has_discount") == "true" {
		f.DiscountedAt = now
	}

	if v := c.Query("sort_by"); v != "" {
		f.SortBy = store.ProductSort(v)
		if !f.SortBy.Valid() {
			badRequest(c, "Invalid sort_by")
			return f, false
		}
	}
	switch c.DefaultQuery("sort_direction", "desc") {
	case "asc":
		f.SortAsc = true
	case "desc":
	default:
		badRequest(c, "Invalid sort_direction")
		return f, false
	}
	return f, true
}

// GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/seller/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), actorFrom(c), service.ProductInput{
		CategoryID:    req.CategoryID,
		NameAr:        req.NameAr,
		NameEn:        req.NameEn,
		DescriptionAr: req.DescriptionAr,
		DescriptionEn: req.DescriptionEn,
		Price:         req.Price,
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/seller/products?approved=true|false
func (h *Handler) SellerProducts(c *gin.Context) {
	var approved *bool
	if v := c.Query("approved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "Invalid approved flag")
			return
		}
		approved = &b
	}
	products, err := h.catalog.SellerProducts(c.Request.Context(), actorFrom(c), approved)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

// DELETE /api/seller/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PATCH /api/seller/products/:id/stock
func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	p, err := h.catalog.AdjustStock(c.Request.Context(), actorFrom(c), id, req.Delta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PATCH /api/seller/products/:id/discount
func (h *Handler) SetStandaloneDiscount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req standaloneDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	p, err := h.catalog.SetStandaloneDiscount(c.Request.Context(), actorFrom(c), id, service.StandaloneDiscountUpdate{
		Enabled:    req.HasStandaloneDiscount,
		Percentage: req.Percentage,
		Start:      req.Start,
		End:        req.End,
		ClearStart: req.ClearStart,
		ClearEnd:   req.ClearEnd,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/admin/products/:id/approve
func (h *Handler) ApproveProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.catalog.ApproveProduct(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/admin/products/unapproved
func (h *Handler) UnapprovedProducts(c *gin.Context) {
	products, err := h.catalog.UnapprovedProducts(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

// POST /api/admin/products/:id/disapprove
func (h *Handler) DisapproveProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req disapproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	p, err := h.catalog.DisapproveProduct(c.Request.Context(), actorFrom(c), id, req.ReasonAr, req.ReasonEn)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
