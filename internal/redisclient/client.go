package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrCacheMiss is returned when no cached value exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// DefaultCartTTL bounds how long a cached cart may be served after a write
// that bypassed the cache.
const DefaultCartTTL = 10 * time.Minute

// cartVersionTTL outlives any read that started before the last write.
const cartVersionTTL = 24 * time.Hour

// setCartIfVersionScript writes the cached cart only while the user's cart
// version still equals the one read before the store was queried.
var setCartIfVersionScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if current == false then
	current = "0"
end
if current ~= ARGV[2] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// releaseLockScript deletes the lock only when it still holds the caller's
// token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client wraps Redis for the cart cache and the checkout lock.
type Client struct {
	rdb     *redis.Client
	cartTTL time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, cartTTL: DefaultCartTTL}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func cartVersionKey(userID string) string {
	return fmt.Sprintf("cartver:%s", userID)
}

// GetCart returns the cached cart for userID or ErrCacheMiss.
func (c *Client) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	raw, err := c.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cached cart: %w", err)
	}
	cart.UserID = userID
	return &cart, nil
}

// CartVersion returns the write counter of userID's cart. It must be read
// before loading the cart from the store that is about to be cached.
func (c *Client) CartVersion(ctx context.Context, userID string) (int64, error) {
	v, err := c.rdb.Get(ctx, cartVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cart version: %w", err)
	}
	return v, nil
}

// SetCartIfVersion caches the cart unless a write bumped its version since
// version was read. It reports whether the cart was cached.
func (c *Client) SetCartIfVersion(ctx context.Context, cart *models.Cart, version int64) (bool, error) {
	raw, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("encode cart: %w", err)
	}
	keys := []string{cartKey(cart.UserID), cartVersionKey(cart.UserID)}
	n, err := setCartIfVersionScript.Run(ctx, c.rdb, keys,
		raw, strconv.FormatInt(version, 10), c.cartTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("cache cart: %w", err)
	}
	return n == 1, nil
}

// InvalidateCart bumps the cart version and drops the cached cart, so a
// read that loaded the previous state can no longer cache it.
func (c *Client) InvalidateCart(ctx context.Context, userID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, cartVersionKey(userID))
		pipe.Expire(ctx, cartVersionKey(userID), cartVersionTTL)
		pipe.Del(ctx, cartKey(userID))
		return nil
	})
	return err
}

// AcquireLock acquires a distributed lock. The returned token must be
// passed to ReleaseLock.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases a distributed lock if it is still held with token.
// A lock that expired and was taken by another holder is left alone.
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return releaseLockScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
}
