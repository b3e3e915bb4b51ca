package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
)

type orderRow struct {
	ID              string                        `db:"id"`
	UserID          string                        `db:"user_id"`
	UserEmail       string                        `db:"user_email"`
	Products        jsonb[[]models.OrderProduct]  `db:"products"`
	TotalAmount     float64                       `db:"total_amount"`
	ShippingAddress jsonb[models.ShippingAddress] `db:"shipping_address"`
	PaymentID       string                        `db:"payment_id"`
	PaymentMethod   string                        `db:"payment_method"`
	PaymentStatus   string                        `db:"payment_status"`
	Status          string                        `db:"status"`
	CreatedAt       time.Time                     `db:"created_at"`
	UpdatedAt       time.Time                     `db:"updated_at"`
}

func (r orderRow) toModel() models.Order {
	return models.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		UserEmail:       r.UserEmail,
		Products:        r.Products.V,
		TotalAmount:     r.TotalAmount,
		ShippingAddress: r.ShippingAddress.V,
		PaymentInfo: models.PaymentInfo{
			PaymentID:     r.PaymentID,
			PaymentMethod: r.PaymentMethod,
			PaymentStatus: r.PaymentStatus,
		},
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, user_email, products, total_amount, shipping_address,
			payment_id, payment_method, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.ID, order.UserID, order.UserEmail,
		jsonb[[]models.OrderProduct]{V: order.Products},
		order.TotalAmount,
		jsonb[models.ShippingAddress]{V: order.ShippingAddress},
		order.PaymentInfo.PaymentID, order.PaymentInfo.PaymentMethod, order.PaymentInfo.PaymentStatus,
		order.Status)
	if err := row.Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT * FROM orders WHERE id = $1", id)
}

// GetOrderByPaymentID retrieves the order created for a checkout session
func (s *Store) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT * FROM orders WHERE payment_id = $1", paymentID)
}

func (s *Store) getOrder(ctx context.Context, query string, arg string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	order := row.toModel()
	return &order, nil
}

// MarkOrderPaid transitions a pending order to paid
func (s *Store) MarkOrderPaid(ctx context.Context, paymentID, paymentStatus string) (*models.Order, bool, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE orders SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE payment_id = $3 AND status = $4
		RETURNING *`,
		models.OrderStatusPaid, paymentStatus, paymentID, models.OrderStatusPending)
	if err == nil {
		order := row.toModel()
		return &order, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("mark order paid: %w", err)
	}

	existing, err := s.GetOrderByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ListOrdersByUser retrieves orders for a user
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}
