package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Product represents a product in the catalog
type Product struct {
	ID          string         `db:"id" json:"id" bson:"_id"`
	Name        string         `db:"name" json:"name" bson:"name"`
	Price       float64        `db:"price" json:"price" bson:"price"`
	Description string         `db:"description" json:"description" bson:"description"`
	Category    string         `db:"category" json:"category" bson:"category"`
	Brand       string         `db:"brand" json:"brand" bson:"brand"`
	Images      pq.StringArray `db:"images" json:"images" bson:"images"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// User represents a registered shopper
type User struct {
	ID           string    `db:"id" json:"id" bson:"_id"`
	Username     string    `db:"username" json:"username" bson:"username"`
	Email        string    `db:"email" json:"email" bson:"email"`
	PasswordHash string    `db:"password_hash" json:"-" bson:"password_hash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at" bson:"created_at"`
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	FullName     string `json:"fullName" bson:"full_name" binding:"required"`
	AddressLine1 string `json:"addressLine1" bson:"address_line1" binding:"required"`
	AddressLine2 string `json:"addressLine2,omitempty" bson:"address_line2,omitempty"`
	Country      string `json:"country" bson:"country" binding:"required"`
	State        string `json:"state" bson:"state" binding:"required"`
	City         string `json:"city" bson:"city" binding:"required"`
	Zip          string `json:"zip" bson:"zip" binding:"required"`
}

// MissingFields lists the required fields that are empty or blank.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("fullName", a.FullName)
	check("addressLine1", a.AddressLine1)
	check("country", a.Country)
	check("state", a.State)
	check("city", a.City)
	check("zip", a.Zip)
	return missing
}

// PaymentInfo links an order to the provider's checkout session
type PaymentInfo struct {
	PaymentID     string `db:"payment_id" json:"paymentId" bson:"payment_id"`
	PaymentMethod string `db:"payment_method" json:"paymentMethod" bson:"payment_method"`
	PaymentStatus string `db:"payment_status" json:"paymentStatus" bson:"payment_status"`
}

// OrderProduct is a line of the cart snapshot taken at checkout
type OrderProduct struct {
	ProductID string `json:"productId" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Order represents a checkout attempt and, once paid, a purchase
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"userId" bson:"user_id"`
	UserEmail       string          `json:"userEmail" bson:"user_email"`
	Products        []OrderProduct  `json:"products" bson:"products"`
	TotalAmount     float64         `json:"totalAmount" bson:"total_amount"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shipping_address"`
	PaymentInfo     PaymentInfo     `json:"paymentInfo" bson:"payment_info"`
	Status          string          `json:"status" bson:"status"`
	CreatedAt       time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updated_at"`
}

// Order statuses
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Payment statuses as reported by the provider. Unpaid is the provisional
// value stored until the completion notification arrives.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id" bson:"_id"`
	EventType   string    `db:"event_type" bson:"event_type"`
	ProcessedAt time.Time `db:"processed_at" bson:"processed_at"`
}
