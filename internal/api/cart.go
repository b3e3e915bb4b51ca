package api

import (
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// updateItemRequest allows zero or negative quantities, which remove the line.
type updateItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

type mergeRequest struct {
	Items []models.CartItem `json:"items" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	id, _ := auth.FromContext(c)
	cart, err := h.svc.Carts.GetCart(c.Request.Context(), id.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	id, _ := auth.FromContext(c)
	cart, err := h.svc.Carts.AddItem(c.Request.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	id, _ := auth.FromContext(c)
	cart, err := h.svc.Carts.UpdateItem(c.Request.Context(), id.UserID, req.ProductID, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) mergeCart(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	id, _ := auth.FromContext(c)
	cart, results, err := h.svc.Carts.MergeItems(c.Request.Context(), id.UserID, req.Items)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":    cart,
		"results": results,
	})
}

func (h *Handler) createCheckoutSession(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid checkout request", err)
		return
	}

	id, _ := auth.FromContext(c)
	res, err := h.svc.Checkout.InitiateCheckout(c.Request.Context(), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
