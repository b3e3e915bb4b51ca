package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrItemNotInCart is returned when a quantity update targets a product that
// is not in the cart.
var ErrItemNotInCart = errors.New("product not found in cart")

// CartItem is one product line of a cart
type CartItem struct {
	ProductID string `json:"productId" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// CartItems is stored as a single JSON document column.
type CartItems []CartItem

// Value implements driver.Valuer.
func (ci CartItems) Value() (driver.Value, error) {
	if ci == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ci)
}

// Scan implements sql.Scanner.
func (ci *CartItems) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ci = CartItems{}
		return nil
	case []byte:
		return json.Unmarshal(v, ci)
	case string:
		return json.Unmarshal([]byte(v), ci)
	default:
		return fmt.Errorf("cart items: unsupported source type %T", src)
	}
}

// Cart maps products to quantities for one shopper. UserID is empty for a
// guest cart. ItemCount always equals the sum of item quantities.
type Cart struct {
	UserID    string    `db:"user_id" json:"userId,omitempty" bson:"_id,omitempty"`
	Items     CartItems `db:"items" json:"items" bson:"items"`
	ItemCount int       `db:"item_count" json:"itemCount" bson:"item_count"`
	CreatedAt time.Time `db:"created_at" json:"createdAt,omitempty" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt,omitempty" bson:"updated_at"`
}

// NewCart returns an empty cart owned by userID.
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: CartItems{}}
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// AddItem adds quantity to an existing line or appends a new one.
func (c *Cart) AddItem(productID string, quantity int) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	}
	c.Normalize()
}

// SetQuantity overwrites the quantity of an existing line. A quantity of zero
// or less removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	c.Items[i].Quantity = quantity
	c.Normalize()
	return nil
}

// Clear empties the cart without discarding its owner.
func (c *Cart) Clear() {
	c.Items = CartItems{}
	c.ItemCount = 0
}

// Recount recomputes ItemCount from the items.
func (c *Cart) Recount() {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	c.ItemCount = total
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append(CartItems{}, c.Items...)
	return &out
}

func (c *Cart) indexOf(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Normalize folds repeated product lines into the first one, drops
// non-positive lines and recounts.
func (c *Cart) Normalize() {
	seen := make(map[string]int, len(c.Items))
	folded := CartItems{}
	for _, item := range c.Items {
		if i, ok := seen[item.ProductID]; ok {
			folded[i].Quantity += item.Quantity
			continue
		}
		seen[item.ProductID] = len(folded)
		folded = append(folded, item)
	}
	kept := folded[:0]
	for _, item := range folded {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	c.Recount()
}
