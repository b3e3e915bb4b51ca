package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartCache is a read-through cache in front of the cart store. Every
// invalidation bumps the cart version; a fill only lands when the version
// read before the store load is still current. It is satisfied by
// *redisclient.Client.
type CartCache interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	CartVersion(ctx context.Context, userID string) (int64, error)
	SetCartIfVersion(ctx context.Context, cart *models.Cart, version int64) (bool, error)
	InvalidateCart(ctx context.Context, userID string) error
}

// CartService owns the persistent cart of authenticated users.
type CartService struct {
	carts  store.CartStore
	cache  CartCache
	logger *zap.Logger
}

// NewCartService creates a cart service. cache may be nil.
func NewCartService(carts store.CartStore, cache CartCache) *CartService {
	return &CartService{
		carts:  carts,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// MergeResult reports the outcome of merging one guest cart line.
type MergeResult struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Merged    bool   `json:"merged"`
	Error     string `json:"error,omitempty"`
}

// GetCart returns the user's cart, or an empty one when none exists yet.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	fillable := false
	var version int64
	if s.cache != nil {
		cart, err := s.cache.GetCart(ctx, userID)
		switch {
		case err == nil:
			util.CartCacheLookupsTotal.WithLabelValues("hit").Inc()
			cart.Recount()
			return cart, nil
		case errors.Is(err, redisclient.ErrCacheMiss):
			util.CartCacheLookupsTotal.WithLabelValues("miss").Inc()
			version, err = s.cache.CartVersion(ctx, userID)
			if err != nil {
				s.logger.Warn("Cart version lookup failed", zap.String("user_id", userID), zap.Error(err))
			}
			fillable = err == nil
		default:
			util.CartCacheLookupsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Cart cache lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fillable {
		s.fillCache(ctx, cart, version)
	}
	return cart, nil
}

// AddItem adds quantity to the product's line, creating the cart and the
// line as needed.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		util.CartMutationsTotal.WithLabelValues("add", "error").Inc()
		return nil, err
	}
	cart.AddItem(productID, quantity)

	if err := s.save(ctx, cart); err != nil {
		util.CartMutationsTotal.WithLabelValues("add", "error").Inc()
		return nil, err
	}
	util.CartMutationsTotal.WithLabelValues("add", "ok").Inc()
	return cart, nil
}

// UpdateItem sets the absolute quantity of a line already in the cart. A
// quantity of zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer span.End()

	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrValidation)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		util.CartMutationsTotal.WithLabelValues("update", "not_found").Inc()
		return nil, fmt.Errorf("%w: cart not found", ErrNotFound)
	}
	if err != nil {
		util.CartMutationsTotal.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("%w: load cart: %v", ErrPersistence, err)
	}

	if err := cart.SetQuantity(productID, quantity); err != nil {
		util.CartMutationsTotal.WithLabelValues("update", "not_found").Inc()
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if err := s.save(ctx, cart); err != nil {
		util.CartMutationsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}
	util.CartMutationsTotal.WithLabelValues("update", "ok").Inc()
	return cart, nil
}

// ClearCart empties the user's cart. Clearing a missing or empty cart is a
// no-op.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	if err := s.carts.ClearCart(ctx, userID); err != nil {
		util.CartMutationsTotal.WithLabelValues("clear", "error").Inc()
		return fmt.Errorf("%w: clear cart: %v", ErrPersistence, err)
	}
	s.invalidate(ctx, userID)
	util.CartMutationsTotal.WithLabelValues("clear", "ok").Inc()
	return nil
}

// MergeItems adds every guest line to the user's cart one at a time. A
// failed line is logged and reported but does not undo the lines merged
// before it. The returned cart is re-read after all attempts.
func (s *CartService) MergeItems(ctx context.Context, userID string, items []models.CartItem) (*models.Cart, []MergeResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.MergeItems")
	defer span.End()

	results := make([]MergeResult, 0, len(items))
	for _, item := range items {
		res := MergeResult{ProductID: item.ProductID, Quantity: item.Quantity}
		if _, err := s.AddItem(ctx, userID, item.ProductID, item.Quantity); err != nil {
			res.Error = err.Error()
			util.CartMergeItemsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Failed to merge guest cart item",
				zap.String("user_id", userID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		} else {
			res.Merged = true
			util.CartMergeItemsTotal.WithLabelValues("merged").Inc()
		}
		results = append(results, res)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, results, err
	}
	return cart, results, nil
}

func (s *CartService) load(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.NewCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load cart: %v", ErrPersistence, err)
	}
	cart.Recount()
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) error {
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("%w: save cart: %v", ErrPersistence, err)
	}
	s.invalidate(ctx, cart.UserID)
	return nil
}

// fillCache caches cart as loaded under version. A write that happened
// after version was read wins and the fill is dropped.
func (s *CartService) fillCache(ctx context.Context, cart *models.Cart, version int64) {
	cached, err := s.cache.SetCartIfVersion(ctx, cart, version)
	if err != nil {
		s.logger.Warn("Failed to cache cart", zap.String("user_id", cart.UserID), zap.Error(err))
		return
	}
	if !cached {
		util.CartCacheLookupsTotal.WithLabelValues("stale_fill").Inc()
	}
}

func (s *CartService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCart(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cached cart", zap.String("user_id", userID), zap.Error(err))
	}
}
