package redisclient

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCartCacheRoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	version, err := client.CartVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, version)

	cart := models.NewCart("u1")
	cart.AddItem("p1", 3)
	ok, err := client.SetCartIfVersion(ctx, cart, version)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("cart:u1"))

	got, err := client.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 3, got.ItemCount)
	assert.Equal(t, cart.Items, got.Items)

	require.NoError(t, client.InvalidateCart(ctx, "u1"))
	_, err = client.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	version, err = client.CartVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSetCartIfVersionRejectsStaleFill(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	version, err := client.CartVersion(ctx, "u1")
	require.NoError(t, err)

	// a write lands between the version read and the fill
	require.NoError(t, client.InvalidateCart(ctx, "u1"))

	stale := models.NewCart("u1")
	stale.AddItem("p1", 2)
	ok, err := client.SetCartIfVersion(ctx, stale, version)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("cart:u1"))

	version, err = client.CartVersion(ctx, "u1")
	require.NoError(t, err)
	ok, err = client.SetCartIfVersion(ctx, models.NewCart("u1"), version)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCartCacheExpires(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.SetCartIfVersion(ctx, models.NewCart("u1"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(DefaultCartTTL + time.Second)

	_, err = client.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	token, ok, err := client.AcquireLock(ctx, "checkout:u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = client.AcquireLock(ctx, "checkout:u1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "checkout:u1", token))
	_, ok, err = client.AcquireLock(ctx, "checkout:u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("lock:checkout:u1"))
}

func TestReleaseLockKeepsAnotherHoldersLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	first, ok, err := client.AcquireLock(ctx, "checkout:u1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	second, ok, err := client.AcquireLock(ctx, "checkout:u1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "checkout:u1", first))
	assert.True(t, mr.Exists("lock:checkout:u1"))

	held, err := mr.Get("lock:checkout:u1")
	require.NoError(t, err)
	assert.Equal(t, second, held)
}
