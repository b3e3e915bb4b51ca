package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	*checkoutFixture
	notifier *fakeNotifier
	webhook  *WebhookService
	order    *CheckoutResult
}

// newWebhookFixture checks out a cart holding A x2 and returns the fixture
// with the pending order.
func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := newCheckoutFixture(nil)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, buyer.UserID, "A", 2)
	require.NoError(t, err)
	res, err := f.svc.InitiateCheckout(ctx, buyer, &CheckoutRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	return &webhookFixture{
		checkoutFixture: f,
		notifier:        notifier,
		webhook:         NewWebhookService(f.provider, f.store, f.store, f.carts, notifier),
		order:           res,
	}
}

func (f *webhookFixture) completed(eventID, sessionID string) {
	f.provider.verifyErr = nil
	f.provider.event = payments.WebhookEvent{
		ID:            eventID,
		Type:          payments.EventCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: "paid",
	}
}

func (f *webhookFixture) snapshot(t *testing.T) (*models.Order, *models.Cart) {
	t.Helper()
	ctx := context.Background()
	order, err := f.store.GetOrderByID(ctx, f.order.OrderID)
	require.NoError(t, err)
	cart, err := f.store.GetCart(ctx, buyer.UserID)
	require.NoError(t, err)
	return order, cart
}

func TestWebhookInvalidSignatureMutatesNothing(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.verifyErr = payments.ErrInvalidSignature
	orderBefore, cartBefore := f.snapshot(t)

	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "t=1,v1=bad")
	assert.Nil(t, ack)
	assert.ErrorIs(t, err, ErrAuthenticity)

	orderAfter, cartAfter := f.snapshot(t)
	assert.Equal(t, orderBefore, orderAfter)
	assert.Equal(t, cartBefore, cartAfter)
	assert.Empty(t, f.notifier.orders)
}

func TestWebhookMarksPaidAndClearsCart(t *testing.T) {
	f := newWebhookFixture(t)
	f.completed("evt_1", f.order.SessionID)

	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, ack.Outcome)
	assert.Equal(t, f.order.OrderID, ack.OrderID)

	order, cart := f.snapshot(t)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "paid", order.PaymentInfo.PaymentStatus)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.ItemCount)

	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, "buyer@example.com", f.notifier.orders[0].UserEmail)
	assert.Equal(t, "Cluj-Napoca", f.notifier.orders[0].ShippingAddress.City)
}

func TestWebhookUnmatchedSessionIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	f.completed("evt_2", "cs_unknown")
	orderBefore, cartBefore := f.snapshot(t)

	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, ack.Outcome)

	orderAfter, cartAfter := f.snapshot(t)
	assert.Equal(t, orderBefore, orderAfter)
	assert.Equal(t, cartBefore, cartAfter)
	assert.Empty(t, f.notifier.orders)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.event = payments.WebhookEvent{ID: "evt_3", Type: "payment_intent.created"}

	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, ack.Outcome)

	order, _ := f.snapshot(t)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	f.completed("evt_1", f.order.SessionID)

	_, err := f.webhook.HandleNotification(ctx, []byte(`{}`), "sig")
	require.NoError(t, err)
	first, _ := f.snapshot(t)

	ack, err := f.webhook.HandleNotification(ctx, []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, ack.Outcome)

	// the same session under a new event id is still a single transition
	f.completed("evt_1b", f.order.SessionID)
	ack, err = f.webhook.HandleNotification(ctx, []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyPaid, ack.Outcome)

	second, cart := f.snapshot(t)
	assert.Equal(t, first, second)
	assert.Zero(t, cart.ItemCount)
	assert.Len(t, f.notifier.orders, 1)
}

func TestWebhookPersistenceFaultIsRetryable(t *testing.T) {
	f := newWebhookFixture(t)
	f.completed("evt_1", f.order.SessionID)
	f.store.failMarkPaid = true

	_, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrPersistence)

	processed, err := f.store.IsEventProcessed(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, processed, "a failed delivery must be processed again on redelivery")

	f.store.failMarkPaid = false
	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, ack.Outcome)
}

func TestWebhookBestEffortFailuresAreSwallowed(t *testing.T) {
	f := newWebhookFixture(t)
	f.completed("evt_1", f.order.SessionID)
	f.store.failClearCart = true
	f.notifier.err = errors.New("mailjet 500")

	ack, err := f.webhook.HandleNotification(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, ack.Outcome)

	order, cart := f.snapshot(t)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Len(t, f.notifier.orders, 1)
}
