package notify

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers the order confirmation for a paid order.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
}

// LogNotifier writes confirmations to the log. It is used when no mail
// provider is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

// OrderConfirmed logs the confirmation instead of sending it.
func (n *LogNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	n.logger.Info("Order confirmation",
		zap.String("order_id", order.ID),
		zap.String("to", order.UserEmail),
		zap.String("total", formatTotal(order.TotalAmount)),
		zap.String("city", order.ShippingAddress.City),
	)
	return nil
}

func formatTotal(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
