package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	logger  *zap.Logger
	catalog *service.CatalogService
	sales   *service.SaleService
	carts   *service.CartService
}

func New(logger *zap.Logger, catalog *service.CatalogService, sales *service.SaleService, carts *service.CartService) *Handler {
	return &Handler{
		logger:  logger,
		catalog: catalog,
		sales:   sales,
		carts:   carts,
	}
}

// NewRouter registers every /api route. Everything except health and the
// public catalog needs a bearer token signed with jwtSecret.
func NewRouter(h *Handler, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/sales/active", h.ActiveSales)
		api.GET("/sales/:id/products", h.ProductsInSale)
	}

	authed := api.Group("")
	authed.Use(Authenticate(jwtSecret))

	seller := authed.Group("/seller")
	{
		seller.POST("/products", h.CreateProduct)
		seller.GET("/products", h.SellerProducts)
		seller.DELETE("/products/:id", h.DeleteProduct)
		seller.PATCH("/products/:id/stock", h.AdjustStock)
		seller.PATCH("/products/:id/discount", h.SetStandaloneDiscount)

		seller.GET("/sales", h.SellerSales)
		seller.POST("/sales", h.CreateProductSale)
		seller.PATCH("/sales/:id", h.UpdateProductSale)
		seller.DELETE("/sales/:id", h.DeleteProductSale)
	}

	admin := authed.Group("/admin")
	{
		admin.GET("/products/unapproved", h.UnapprovedProducts)
		admin.POST("/products/:id/approve", h.ApproveProduct)
		admin.POST("/products/:id/disapprove", h.DisapproveProduct)
		admin.POST("/sales", h.CreateSaleEvent)
	}

	cart := authed.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddToCart)
		cart.PATCH("/items/:id", h.UpdateCartItem)
		cart.DELETE("/items/:id", h.RemoveFromCart)
	}

	wishlist := authed.Group("/wishlist")
	{
		wishlist.GET("", h.GetWishlist)
		wishlist.POST("/items", h.AddToWishlist)
		wishlist.DELETE("/items/:id", h.RemoveFromWishlist)
		wishlist.POST("/items/:id/move-to-cart", h.MoveToCart)
	}

	return r
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id format")
		return 0, false
	}
	return id, true
}
