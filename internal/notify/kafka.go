package notify

import (
	"context"

	"storefront/internal/models"
)

// OrderPaidPublisher is satisfied by *broker.EventPublisher.
type OrderPaidPublisher interface {
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
}

// EventNotifier defers the confirmation to the notification worker by
// publishing an ORDER_PAID event.
type EventNotifier struct {
	publisher OrderPaidPublisher
}

// NewEventNotifier creates a notifier backed by publisher.
func NewEventNotifier(publisher OrderPaidPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// OrderConfirmed publishes the paid order.
func (n *EventNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	return n.publisher.PublishOrderPaid(ctx, &models.OrderPaidEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		UserEmail:     order.UserEmail,
		TotalAmount:   order.TotalAmount,
		PaymentID:     order.PaymentInfo.PaymentID,
		PaymentStatus: order.PaymentInfo.PaymentStatus,
		Shipping:      order.ShippingAddress,
	})
}
