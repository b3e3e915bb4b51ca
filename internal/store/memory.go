package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"
)

// MemoryStore keeps everything in process memory. It backs tests and local
// development with STORE_DRIVER=memory. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	carts    map[string]*models.Cart
	orders   map[string]*models.Order
	products map[string]*models.Product
	users    map[string]*models.User
	events   map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    make(map[string]*models.Cart),
		orders:   make(map[string]*models.Order),
		products: make(map[string]*models.Product),
		users:    make(map[string]*models.User),
		events:   make(map[string]string),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// GetCart returns a copy of the cart owned by userID
func (s *MemoryStore) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cart.Clone(), nil
}

// SaveCart stores a copy of cart
func (s *MemoryStore) SaveCart(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.carts[cart.UserID]; ok {
		cart.CreatedAt = existing.CreatedAt
	} else {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Recount()
	s.carts[cart.UserID] = cart.Clone()
	return nil
}

// ClearCart empties the cart owned by userID
func (s *MemoryStore) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[userID]; ok {
		cart.Clear()
		cart.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// CreateOrder inserts a new order
func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentInfo.PaymentID == order.PaymentInfo.PaymentID {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *MemoryStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(order), nil
}

// GetOrderByPaymentID retrieves an order by its checkout session ID
func (s *MemoryStore) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if order := s.orderByPayment(paymentID); order != nil {
		return cloneOrder(order), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) orderByPayment(paymentID string) *models.Order {
	for _, o := range s.orders {
		if o.PaymentInfo.PaymentID == paymentID {
			return o
		}
	}
	return nil
}

// MarkOrderPaid flips a pending order to paid and reports whether it did
func (s *MemoryStore) MarkOrderPaid(ctx context.Context, paymentID, paymentStatus string) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := s.orderByPayment(paymentID)
	if order == nil {
		return nil, false, ErrNotFound
	}
	if order.Status != models.OrderStatusPending {
		return cloneOrder(order), false, nil
	}
	order.Status = models.OrderStatusPaid
	order.PaymentInfo.PaymentStatus = paymentStatus
	order.UpdatedAt = time.Now().UTC()
	return cloneOrder(order), true, nil
}

// ListOrdersByUser returns the orders of userID, newest first
func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := []models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func cloneOrder(o *models.Order) *models.Order {
	out := *o
	out.Products = append([]models.OrderProduct(nil), o.Products...)
	return &out
}

func cloneProduct(p *models.Product) *models.Product {
	out := *p
	out.Images = append([]string(nil), p.Images...)
	return &out
}

// GetProductByID retrieves a product by ID
func (s *MemoryStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProduct(p), nil
}

// GetProductsByIDs returns the products that exist among ids
func (s *MemoryStore) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := []models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			products = append(products, *cloneProduct(p))
		}
	}
	return products, nil
}

// matching returns the products accepted by f, oldest first.
func (s *MemoryStore) matching(f ProductFilter) []models.Product {
	out := []models.Product{}
	for _, p := range s.products {
		if f.ID != "" && p.ID != f.ID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if len(f.Brands) > 0 && !contains(f.Brands, p.Brand) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, *cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListProducts returns one page of matching products and the total match count
func (s *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int, error) {
	if err := checkWindow(offset, limit); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matching(filter)
	total := len(all)
	if offset >= total {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// CreateProduct inserts a new product
func (s *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = cloneProduct(product)
	return nil
}

// UpdateProduct replaces an existing product
func (s *MemoryStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = cloneProduct(product)
	return nil
}

// DeleteProduct removes a product
func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// CategoryCounts counts products per category
func (s *MemoryStore) CategoryCounts(ctx context.Context) ([]FieldCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countBy(s.matching(ProductFilter{}), func(p models.Product) string { return p.Category }), nil
}

// BrandCounts counts matching products per brand
func (s *MemoryStore) BrandCounts(ctx context.Context, filter ProductFilter) ([]FieldCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countBy(s.matching(filter), func(p models.Product) string { return p.Brand }), nil
}

// PriceBounds returns the price range of matching products
func (s *MemoryStore) PriceBounds(ctx context.Context, filter ProductFilter) (PriceBounds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := s.matching(filter)
	if len(products) == 0 {
		return PriceBounds{}, nil
	}
	bounds := PriceBounds{MinPrice: products[0].Price, MaxPrice: products[0].Price}
	for _, p := range products[1:] {
		if p.Price < bounds.MinPrice {
			bounds.MinPrice = p.Price
		}
		if p.Price > bounds.MaxPrice {
			bounds.MaxPrice = p.Price
		}
	}
	return bounds, nil
}

func countBy(products []models.Product, key func(models.Product) string) []FieldCount {
	counts := map[string]int{}
	for _, p := range products {
		counts[key(p)]++
	}
	out := make([]FieldCount, 0, len(counts))
	for value, n := range counts {
		out = append(out, FieldCount{Value: value, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// CreateUser inserts a new user
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return ErrDuplicate
	}
	user.CreatedAt = time.Now().UTC()
	u := *user
	s.users[user.Email] = &u
	return nil
}

// GetUserByEmail retrieves a user by e-mail
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// IsEventProcessed reports whether eventID was already handled
func (s *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventID]
	return ok, nil
}

// MarkEventProcessed records eventID as handled
func (s *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventID] = eventType
	return nil
}
