package service

import (
	"context"
	"math/rand"
	"testing"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartItemCountInvariant(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"A", "B", "C", "D"}

	for i := 0; i < 200; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			_, err := svc.AddItem(ctx, "u1", id, 1+rng.Intn(3))
			require.NoError(t, err)
		} else {
			_, _ = svc.UpdateItem(ctx, "u1", id, rng.Intn(5)-1)
		}

		cart, err := svc.GetCart(ctx, "u1")
		require.NoError(t, err)
		sum := 0
		for _, item := range cart.Items {
			assert.Positive(t, item.Quantity)
			sum += item.Quantity
		}
		assert.Equal(t, sum, cart.ItemCount)
	}
}

func TestGetCartWithoutCartIsEmpty(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)

	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.ItemCount)
}

func TestAddItemValidation(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddItem(ctx, "u1", " ", 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMergeIntoEmptyCart(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)

	cart, results, err := svc.MergeItems(context.Background(), "u1", []models.CartItem{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Equal(t, 2, cart.Quantity("A"))
	assert.Equal(t, 1, cart.Quantity("B"))
}

func TestMergeAddsButUpdateOverwrites(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 1)
	require.NoError(t, err)

	cart, _, err := svc.MergeItems(ctx, "u1", []models.CartItem{{ProductID: "A", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Quantity("A"))

	cart, err = svc.UpdateItem(ctx, "u1", "A", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Quantity("A"))

	cart, err = svc.UpdateItem(ctx, "u1", "A", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Quantity("A"))
}

func TestMergePartialFailureIsNotRolledBack(t *testing.T) {
	st := newFlakyStore()
	st.failSaveCart["BAD"] = true
	svc := NewCartService(st, nil)

	cart, results, err := svc.MergeItems(context.Background(), "u1", []models.CartItem{
		{ProductID: "A", Quantity: 2},
		{ProductID: "BAD", Quantity: 1},
		{ProductID: "C", Quantity: 0},
		{ProductID: "D", Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.True(t, results[0].Merged)
	assert.False(t, results[1].Merged)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].Merged)
	assert.True(t, results[3].Merged)

	assert.Equal(t, 6, cart.ItemCount)
	assert.Zero(t, cart.Quantity("BAD"))
}

func TestUpdateItemZeroRemoves(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "B", 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, "u1", "A", 0)
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cart.Quantity("A"))
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.ItemCount)
}

func TestUpdateItemNotFound(t *testing.T) {
	svc := NewCartService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, "u1", "A", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddItem(ctx, "u1", "B", 1)
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, "u1", "A", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartCacheReadThroughAndInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	svc := NewCartService(store.NewMemoryStore(), cache)
	ctx := context.Background()

	_, err = svc.AddItem(ctx, "u1", "A", 1)
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:u1"), "writes invalidate the cache")

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount)
	assert.True(t, mr.Exists("cart:u1"), "reads fill the cache")

	_, err = svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)
	cart, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount)

	require.NoError(t, svc.ClearCart(ctx, "u1"))
	cart, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cart.ItemCount)
}

func TestCartCacheOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	svc := NewCartService(store.NewMemoryStore(), cache)
	ctx := context.Background()
	_, err = svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)

	mr.Close()

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount)
}

func TestCartCacheDropsFillRacingAClear(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	st := newFlakyStore()
	svc := NewCartService(st, cache)
	ctx := context.Background()

	_, err = svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)

	st.afterGetCart = func() {
		require.NoError(t, svc.ClearCart(ctx, "u1"))
	}
	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount, "the read saw the cart before the clear")
	assert.False(t, mr.Exists("cart:u1"), "the pre-clear cart is not cached")

	cart, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cart.ItemCount)
	assert.True(t, mr.Exists("cart:u1"))
}

func TestCheckoutSnapshotIgnoresCachedCart(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	st := newFlakyStore()
	seedCatalog(st)
	carts := NewCartService(st, cache)
	provider := &fakeProvider{}
	svc := NewCheckoutService(st, st, carts, provider, nil, nil, CheckoutConfig{Currency: "usd"})
	ctx := context.Background()

	stale := models.NewCart(buyer.UserID)
	stale.AddItem("A", 2)
	version, err := cache.CartVersion(ctx, buyer.UserID)
	require.NoError(t, err)
	ok, err := cache.SetCartIfVersion(ctx, stale, version)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.InitiateCheckout(ctx, buyer, &CheckoutRequest{ShippingAddress: validAddress()})
	assert.ErrorIs(t, err, ErrValidation, "the stored cart is empty")
	assert.Zero(t, provider.calls())
}
