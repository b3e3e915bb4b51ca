package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
)

// OrderService lets shoppers read their own orders.
type OrderService struct {
	orders store.OrderStore
}

// NewOrderService creates a new order service
func NewOrderService(orders store.OrderStore) *OrderService {
	return &OrderService{orders: orders}
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, id auth.Identity) ([]models.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", ErrPersistence, err)
	}
	return orders, nil
}

// GetOrder returns one order. Orders of other users are reported as not
// found unless the caller is an admin.
func (s *OrderService) GetOrder(ctx context.Context, id auth.Identity, orderID string) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get order: %v", ErrPersistence, err)
	}
	if order.UserID != id.UserID && !id.Admin {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return order, nil
}
