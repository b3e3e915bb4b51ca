package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/store"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []payments.CheckoutSessionRequest
	err      error
	next     int

	event     payments.WebhookEvent
	verifyErr error
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return payments.CheckoutSession{}, p.err
	}
	p.next++
	id := fmt.Sprintf("cs_test_%d", p.next)
	return payments.CheckoutSession{ID: id, RedirectURL: "https://checkout.test/" + id}, nil
}

func (p *fakeProvider) VerifyEvent(payload []byte, signatureHeader string) (payments.WebhookEvent, error) {
	if p.verifyErr != nil {
		return payments.WebhookEvent{}, p.verifyErr
	}
	return p.event, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (n *fakeNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	return n.err
}

// fakeLocker maps held keys to their holder's token.
type fakeLocker struct {
	held map[string]string
	next int
	err  error
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.next++
	token := fmt.Sprintf("tok-%d", l.next)
	l.held[key] = token
	return token, true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type fakeUploader struct {
	names []string
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(r)
	u.names = append(u.names, filename)
	return "https://img.test/" + filename, nil
}

var errDown = errors.New("database down")

// flakyStore wraps a MemoryStore and fails selected operations.
type flakyStore struct {
	*store.MemoryStore
	failCreateOrder bool
	failMarkPaid    bool
	failClearCart   bool
	failSaveCart    map[string]bool
	// afterGetCart runs once, after the next cart load and before it returns.
	afterGetCart func()
}

func (s *flakyStore) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.MemoryStore.GetCart(ctx, userID)
	if hook := s.afterGetCart; hook != nil {
		s.afterGetCart = nil
		hook()
	}
	return cart, err
}

func (s *flakyStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if s.failCreateOrder {
		return errDown
	}
	return s.MemoryStore.CreateOrder(ctx, order)
}

func (s *flakyStore) MarkOrderPaid(ctx context.Context, paymentID, status string) (*models.Order, bool, error) {
	if s.failMarkPaid {
		return nil, false, errDown
	}
	return s.MemoryStore.MarkOrderPaid(ctx, paymentID, status)
}

func (s *flakyStore) ClearCart(ctx context.Context, userID string) error {
	if s.failClearCart {
		return errDown
	}
	return s.MemoryStore.ClearCart(ctx, userID)
}

func (s *flakyStore) SaveCart(ctx context.Context, cart *models.Cart) error {
	for _, item := range cart.Items {
		if s.failSaveCart[item.ProductID] {
			return errDown
		}
	}
	return s.MemoryStore.SaveCart(ctx, cart)
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore(), failSaveCart: map[string]bool{}}
}

func seedCatalog(s store.ProductStore) {
	ctx := context.Background()
	for _, p := range []models.Product{
		{ID: "A", Name: "Lipstick", Price: 19.99, Category: "makeup", Brand: "mara"},
		{ID: "B", Name: "Mascara", Price: 1.005, Category: "makeup", Brand: "lux"},
		{ID: "C", Name: "Serum", Price: 45, Category: "skincare", Brand: "mara"},
	} {
		product := p
		_ = s.CreateProduct(ctx, &product)
	}
}
