package api

import (
	"io"
	"net/http"

	"storefront/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 64 << 10

func (h *Handler) listOrders(c *gin.Context) {
	id, _ := auth.FromContext(c)
	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, _ := auth.FromContext(c)
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// stripeWebhook verifies against the exact bytes received, so the body is
// read raw and never bound.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Unreadable webhook body", err)
		return
	}

	ack, err := h.svc.Webhooks.HandleNotification(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Debug("Webhook acknowledged",
		zap.String("event_id", ack.EventID),
		zap.String("outcome", ack.Outcome),
	)
	c.JSON(http.StatusOK, ack)
}
