package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/notify"
	"storefront/internal/payments"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// EventVerifier authenticates raw provider notifications.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (payments.WebhookEvent, error)
}

// Ack describes how a verified notification was handled. Every Ack is a
// success from the provider's point of view.
type Ack struct {
	EventID string `json:"eventId"`
	Outcome string `json:"outcome"`
	OrderID string `json:"orderId,omitempty"`
}

// Ack outcomes
const (
	OutcomePaid        = "paid"
	OutcomeAlreadyPaid = "already_paid"
	OutcomeUnmatched   = "unmatched"
	OutcomeIgnored     = "ignored"
	OutcomeDuplicate   = "duplicate"
)

// WebhookService finalizes orders from payment provider notifications.
type WebhookService struct {
	verifier EventVerifier
	orders   store.OrderStore
	events   store.EventStore
	carts    *CartService
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	verifier EventVerifier,
	orders store.OrderStore,
	events store.EventStore,
	carts *CartService,
	notifier notify.Notifier,
) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		orders:   orders,
		events:   events,
		carts:    carts,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// HandleNotification verifies the payload and, for a completed checkout,
// moves the matching order to paid, clears the buyer's cart and sends the
// confirmation. Only an authenticity failure or a failed paid transition is
// returned as an error; the latter makes the provider redeliver.
func (s *WebhookService) HandleNotification(ctx context.Context, payload []byte, signatureHeader string) (*Ack, error) {
	ctx, span := util.StartSpan(ctx, "WebhookService.HandleNotification")
	defer span.End()

	event, err := s.verifier.VerifyEvent(payload, signatureHeader)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		s.logger.Warn("Rejected payment notification with invalid signature", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAuthenticity, err)
	}

	ack := &Ack{EventID: event.ID}

	if processed, err := s.events.IsEventProcessed(ctx, event.ID); err != nil {
		s.logger.Warn("Failed to check processed events", zap.String("event_id", event.ID), zap.Error(err))
	} else if processed {
		util.WebhookEventsTotal.WithLabelValues(event.Type, OutcomeDuplicate).Inc()
		s.logger.Info("Payment notification already processed", zap.String("event_id", event.ID))
		ack.Outcome = OutcomeDuplicate
		return ack, nil
	}

	if event.Type != payments.EventCheckoutCompleted || event.SessionID == "" {
		util.WebhookEventsTotal.WithLabelValues(event.Type, OutcomeIgnored).Inc()
		ack.Outcome = OutcomeIgnored
		return ack, nil
	}

	paymentStatus := event.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = "paid"
	}

	order, transitioned, err := s.orders.MarkOrderPaid(ctx, event.SessionID, paymentStatus)
	if errors.Is(err, store.ErrNotFound) {
		util.WebhookEventsTotal.WithLabelValues(event.Type, OutcomeUnmatched).Inc()
		s.logger.Warn("No order for checkout session", zap.String("session_id", event.SessionID))
		ack.Outcome = OutcomeUnmatched
		return ack, nil
	}
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		s.logger.Error("Failed to mark order paid",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: mark order paid: %v", ErrPersistence, err)
	}
	ack.OrderID = order.ID

	if err := s.carts.ClearCart(ctx, order.UserID); err != nil {
		util.BestEffortFailuresTotal.WithLabelValues("cart_clear").Inc()
		s.logger.Error("Failed to clear cart after payment",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
	}

	if transitioned {
		util.OrdersPaidTotal.Inc()
		ack.Outcome = OutcomePaid
		if err := s.notifier.OrderConfirmed(ctx, order); err != nil {
			util.BestEffortFailuresTotal.WithLabelValues("notify").Inc()
			util.NotificationsSentTotal.WithLabelValues("failed").Inc()
			s.logger.Error("Failed to send order confirmation",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	} else {
		ack.Outcome = OutcomeAlreadyPaid
	}

	if err := s.events.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		s.logger.Warn("Failed to record processed event", zap.String("event_id", event.ID), zap.Error(err))
	}

	util.WebhookEventsTotal.WithLabelValues(event.Type, ack.Outcome).Inc()
	s.logger.Info("Payment notification handled",
		zap.String("event_id", event.ID),
		zap.String("order_id", order.ID),
		zap.String("outcome", ack.Outcome),
	)
	return ack, nil
}
