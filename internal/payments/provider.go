package payments

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a notification fails signature or
// payload verification.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// EventCheckoutCompleted is the only notification type acted upon.
const EventCheckoutCompleted = "checkout.session.completed"

// LineItem is one priced product line. Amount is in minor currency units.
type LineItem struct {
	Name     string
	Amount   int64
	Quantity int64
}

// CheckoutSessionRequest describes a hosted checkout.
type CheckoutSessionRequest struct {
	Currency       string
	Items          []LineItem
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	PaymentMethod  string
	IdempotencyKey string
	Metadata       map[string]string
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// WebhookEvent is a verified provider notification. SessionID and
// PaymentStatus are populated for checkout session events only.
type WebhookEvent struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus string
}

// Provider is the payment gateway as seen by the checkout workflow.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	VerifyEvent(payload []byte, signatureHeader string) (WebhookEvent, error)
}
