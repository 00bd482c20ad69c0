package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type wishlistItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// GET /api/cart
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// POST /api/cart/items
func (h *Handler) AddToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	cart, err := h.carts.AddToCart(c.Request.Context(), actorFrom(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// PATCH /api/cart/items/:id
func (h *Handler) UpdateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	cart, err := h.carts.UpdateCartItem(c.Request.Context(), actorFrom(c).ID, id, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// DELETE /api/cart/items/:id
func (h *Handler) RemoveFromCart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cart, err := h.carts.RemoveFromCart(c.Request.Context(), actorFrom(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// GET /api/wishlist
func (h *Handler) GetWishlist(c *gin.Context) {
	wl, err := h.carts.GetWishlist(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

// POST /api/wishlist/items
func (h *Handler) AddToWishlist(c *gin.Context) {
	var req wishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}
	wl, err := h.carts.AddToWishlist(c.Request.Context(), actorFrom(c).ID, req.ProductID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wl)
}

// DELETE /api/wishlist/items/:id
func (h *Handler) RemoveFromWishlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	wl, err := h.carts.RemoveFromWishlist(c.Request.Context(), actorFrom(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

// POST /api/wishlist/items/:id/move-to-cart
func (h *Handler) MoveToCart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.carts.MoveToCart(c.Request.Context(), actorFrom(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
