package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const checkoutLockTTL = 30 * time.Second

// Locker guards a key across processes. It is satisfied by
// *redisclient.Client.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// OrderEventPublisher is satisfied by *broker.EventPublisher.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}

// CheckoutConfig holds the provider redirect targets and currency.
type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// CheckoutRequest is the cart snapshot and delivery details for one
// checkout attempt. An empty Items falls back to the persistent cart.
type CheckoutRequest struct {
	Items           []models.CartItem      `json:"items" binding:"omitempty,dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// CheckoutResult tells the caller where to send the shopper.
type CheckoutResult struct {
	RedirectURL string `json:"url"`
	OrderID     string `json:"orderId"`
	SessionID   string `json:"sessionId"`
}

// CheckoutService creates payment sessions and their pending orders.
type CheckoutService struct {
	orders    store.OrderStore
	products  store.ProductStore
	carts     *CartService
	provider  payments.Provider
	locker    Locker
	publisher OrderEventPublisher
	cfg       CheckoutConfig
	logger    *zap.Logger
}

// NewCheckoutService creates a checkout service. locker and publisher may be
// nil.
func NewCheckoutService(
	orders store.OrderStore,
	products store.ProductStore,
	carts *CartService,
	provider payments.Provider,
	locker Locker,
	publisher OrderEventPublisher,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		products:  products,
		carts:     carts,
		provider:  provider,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// InitiateCheckout validates the request, prices the snapshot, opens a
// provider session and records a pending order for it. The cart is not
// touched; it is cleared when the payment is confirmed.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, id auth.Identity, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.InitiateCheckout")
	defer span.End()

	result, err := s.initiate(ctx, id, req)
	if err != nil {
		util.CheckoutSessionsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	util.CheckoutSessionsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *CheckoutService) initiate(ctx context.Context, id auth.Identity, req *CheckoutRequest) (*CheckoutResult, error) {
	if missing := req.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing shipping fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	items := req.Items
	if len(items) == 0 {
		// the snapshot is read from the store, never from the cart cache
		cart, err := s.carts.load(ctx, id.UserID)
		if err != nil {
			return nil, err
		}
		items = cart.Items
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, fmt.Errorf("%w: productId is required", ErrValidation)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %s must be at least 1", ErrValidation, item.ProductID)
		}
	}

	if s.locker != nil {
		key := "checkout:" + id.UserID
		token, acquired, err := s.locker.AcquireLock(ctx, key, checkoutLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Checkout lock unavailable, continuing without it",
				zap.String("user_id", id.UserID), zap.Error(err))
		case !acquired:
			return nil, fmt.Errorf("%w: checkout in progress", ErrConflict)
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.String("user_id", id.UserID), zap.Error(err))
				}
			}()
		}
	}

	lines, total, err := s.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Currency:       s.cfg.Currency,
		Items:          lines,
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		CustomerEmail:  id.Email,
		PaymentMethod:  paymentMethod,
		IdempotencyKey: orderID,
		Metadata:       map[string]string{"orderId": orderID, "userId": id.UserID},
	})
	if err != nil {
		s.logger.Error("Payment session creation failed", zap.String("user_id", id.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	products := make([]models.OrderProduct, 0, len(items))
	for _, item := range items {
		products = append(products, models.OrderProduct{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order := &models.Order{
		ID:              orderID,
		UserID:          id.UserID,
		UserEmail:       id.Email,
		Products:        products,
		TotalAmount:     total.InexactFloat64(),
		ShippingAddress: req.ShippingAddress,
		PaymentInfo: models.PaymentInfo{
			PaymentID:     session.ID,
			PaymentMethod: paymentMethod,
			PaymentStatus: models.PaymentStatusUnpaid,
		},
		Status: models.OrderStatusPending,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to persist order, payment session orphaned",
			zap.String("session_id", session.ID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: create order: %v", ErrPersistence, err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("session_id", session.ID),
		zap.String("total", total.StringFixed(2)),
	)

	s.publishCreated(ctx, order)

	return &CheckoutResult{
		RedirectURL: session.RedirectURL,
		OrderID:     order.ID,
		SessionID:   session.ID,
	}, nil
}

// priceItems resolves catalog prices and returns provider line items in
// minor units together with the order total.
func (s *CheckoutService) priceItems(ctx context.Context, items []models.CartItem) ([]payments.LineItem, decimal.Decimal, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	found, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("%w: load products: %v", ErrPersistence, err)
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	lines := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: unknown product %s", ErrValidation, item.ProductID)
		}
		price := decimal.NewFromFloat(product.Price)
		lines = append(lines, payments.LineItem{
			Name:     product.Name,
			Amount:   UnitAmount(price.Mul(hundred)),
			Quantity: int64(item.Quantity),
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return lines, total.Round(2), nil
}

// UnitAmount rounds a minor-unit amount half away from zero.
func UnitAmount(minor decimal.Decimal) int64 {
	return minor.Round(0).IntPart()
}

func (s *CheckoutService) publishCreated(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		PaymentID:   order.PaymentInfo.PaymentID,
		TotalAmount: order.TotalAmount,
		Items:       order.Products,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		util.BestEffortFailuresTotal.WithLabelValues("publish_order_created").Inc()
		s.logger.Warn("Failed to publish order created event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}
