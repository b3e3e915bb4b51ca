package models

import "time"

// Event types
const (
	EventTypeOrderCreated = "ORDER_CREATED"
	EventTypeOrderPaid    = "ORDER_PAID"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a checkout session produced a pending order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string         `json:"order_id"`
	UserID      string         `json:"user_id"`
	PaymentID   string         `json:"payment_id"`
	TotalAmount float64        `json:"total_amount"`
	Items       []OrderProduct `json:"items"`
}

// OrderPaidEvent published when the payment webhook confirmed an order. It
// carries everything the confirmation e-mail needs.
type OrderPaidEvent struct {
	BaseEvent
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	UserEmail     string          `json:"user_email"`
	TotalAmount   float64         `json:"total_amount"`
	PaymentID     string          `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	Shipping      ShippingAddress `json:"shipping"`
}

// OrderFromPaidEvent rebuilds the order fields carried by the event.
func OrderFromPaidEvent(e *OrderPaidEvent) *Order {
	return &Order{
		ID:              e.OrderID,
		UserID:          e.UserID,
		UserEmail:       e.UserEmail,
		TotalAmount:     e.TotalAmount,
		ShippingAddress: e.Shipping,
		PaymentInfo: PaymentInfo{
			PaymentID:     e.PaymentID,
			PaymentStatus: e.PaymentStatus,
		},
		Status: OrderStatusPaid,
	}
}
