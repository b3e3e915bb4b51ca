package worker

import (
	"context"
	"sync"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker sends order confirmations for ORDER_PAID events
// published by the payment webhook. It also tracks orders that were created
// by checkout and have not been paid yet.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	notifier     notify.Notifier
	logger       *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifier notify.Notifier) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		notifier:     notifier,
		logger:       util.GetLogger(),
		pending:      make(map[string]time.Time),
	}
	w.eventHandler.OnOrderCreated(w.HandleOrderCreated)
	w.eventHandler.OnOrderPaid(w.HandleOrderPaid)
	return w
}

// HandleOrderCreated records a pending order.
func (w *NotificationWorker) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	w.mu.Lock()
	w.pending[event.OrderID] = event.Timestamp
	n := len(w.pending)
	w.mu.Unlock()
	util.PendingOrders.Set(float64(n))

	w.logger.Info("Order awaiting payment",
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.Float64("total_amount", event.TotalAmount),
		zap.Int("pending", n),
	)
	return nil
}

// PendingOrders returns how many created orders have not been paid yet.
func (w *NotificationWorker) PendingOrders() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *NotificationWorker) settle(orderID string) {
	w.mu.Lock()
	delete(w.pending, orderID)
	n := len(w.pending)
	w.mu.Unlock()
	util.PendingOrders.Set(float64(n))
}

// HandleOrderPaid sends the confirmation. A delivery failure is counted and
// swallowed so a bad address cannot block the partition.
func (w *NotificationWorker) HandleOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationWorker.HandleOrderPaid")
	defer span.End()
	w.settle(event.OrderID)

	order := models.OrderFromPaidEvent(event)
	if err := w.notifier.OrderConfirmed(ctx, order); err != nil {
		util.NotificationsSentTotal.WithLabelValues("failed").Inc()
		util.BestEffortFailuresTotal.WithLabelValues("notify").Inc()
		w.logger.Error("Failed to send order confirmation",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil
	}
	util.NotificationsSentTotal.WithLabelValues("sent").Inc()
	return nil
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
