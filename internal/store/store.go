package store

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidPage is returned for a negative offset or limit.
	ErrInvalidPage = errors.New("invalid page window")
)

func checkWindow(offset, limit int) error {
	if offset < 0 || limit < 0 {
		return fmt.Errorf("%w: offset %d, limit %d", ErrInvalidPage, offset, limit)
	}
	return nil
}

// CartStore persists one cart document per user. Writes are last-write-wins.
type CartStore interface {
	// GetCart returns ErrNotFound when the user has no cart yet.
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
	// SaveCart upserts the cart keyed by its UserID.
	SaveCart(ctx context.Context, cart *models.Cart) error
	// ClearCart empties an existing cart. A missing cart is left missing.
	ClearCart(ctx context.Context, userID string) error
}

// OrderStore is an append-only collection of checkout attempts.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	// MarkOrderPaid moves the order holding paymentID from pending to paid.
	// The boolean reports whether this call performed the transition; an
	// order that was already paid is returned unchanged.
	MarkOrderPaid(ctx context.Context, paymentID, paymentStatus string) (*models.Order, bool, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// ProductFilter narrows catalog queries. Zero values mean "no constraint".
type ProductFilter struct {
	ID       string
	Category string
	Brands   []string
	MinPrice *float64
	MaxPrice *float64
}

// FieldCount is one facet value with the number of matching products.
type FieldCount struct {
	Value string `db:"value" json:"value" bson:"_id"`
	Count int    `db:"count" json:"count" bson:"count"`
}

// PriceBounds is the price range of the matching products.
type PriceBounds struct {
	MinPrice float64 `db:"min_price" json:"minPrice" bson:"min_price"`
	MaxPrice float64 `db:"max_price" json:"maxPrice" bson:"max_price"`
}

type ProductStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	CategoryCounts(ctx context.Context) ([]FieldCount, error)
	BrandCounts(ctx context.Context, filter ProductFilter) ([]FieldCount, error)
	PriceBounds(ctx context.Context, filter ProductFilter) (PriceBounds, error)
}

type UserStore interface {
	// CreateUser returns ErrDuplicate when the e-mail is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// EventStore records provider event ids that were fully handled.
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Backend is a complete storage implementation.
type Backend interface {
	CartStore
	OrderStore
	ProductStore
	UserStore
	EventStore
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*MongoStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)
