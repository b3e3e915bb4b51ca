package store

import (
	"context"
	"os"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL and skips when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	order := &models.Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		UserEmail:   "buyer@example.com",
		Products:    []models.OrderProduct{{ProductID: "p1", Quantity: 2}},
		TotalAmount: 19.98,
		ShippingAddress: models.ShippingAddress{
			FullName: "A", AddressLine1: "1 Main", Country: "US", State: "CA", City: "SF", Zip: "94000",
		},
		PaymentInfo: models.PaymentInfo{PaymentID: "cs_" + uuid.NewString(), PaymentMethod: "card", PaymentStatus: models.PaymentStatusUnpaid},
		Status:      models.OrderStatusPending,
	}

	err := store.CreateOrder(ctx, order)
	assert.NoError(t, err)
	assert.False(t, order.CreatedAt.IsZero())

	retrieved, err := store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, retrieved.UserID)
	assert.Equal(t, order.Products, retrieved.Products)
	assert.Equal(t, "SF", retrieved.ShippingAddress.City)
}

func TestMarkOrderPaidOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	paymentID := "cs_" + uuid.NewString()
	order := &models.Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		PaymentInfo: models.PaymentInfo{PaymentID: paymentID, PaymentStatus: models.PaymentStatusUnpaid},
		Status:      models.OrderStatusPending,
	}
	require.NoError(t, store.CreateOrder(ctx, order))

	paid, transitioned, err := store.MarkOrderPaid(ctx, paymentID, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)

	again, transitioned, err := store.MarkOrderPaid(ctx, paymentID, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, paid.UpdatedAt, again.UpdatedAt)

	_, _, err = store.MarkOrderPaid(ctx, "cs_missing", models.PaymentStatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cart := models.NewCart(uuid.NewString())
	cart.AddItem("p1", 2)
	require.NoError(t, store.SaveCart(ctx, cart))

	cart.AddItem("p2", 1)
	require.NoError(t, store.SaveCart(ctx, cart))

	got, err := store.GetCart(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ItemCount)
	assert.Len(t, got.Items, 2)

	require.NoError(t, store.ClearCart(ctx, cart.UserID))
	got, err = store.GetCart(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Zero(t, got.ItemCount)
}

func TestProcessedEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	eventID := "evt_" + uuid.NewString()
	processed, err := store.IsEventProcessed(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.MarkEventProcessed(ctx, eventID, "checkout.session.completed"))
	require.NoError(t, store.MarkEventProcessed(ctx, eventID, "checkout.session.completed"))

	processed, err = store.IsEventProcessed(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestListProductsRejectsNegativeWindow(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.ListProducts(context.Background(), ProductFilter{}, -4, 2)
	assert.ErrorIs(t, err, ErrInvalidPage)
}
