// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// CartItem represents one product line in a user's cart
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"user_id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"product_id"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	PriceAtAdd int64     `gorm:"not null" json:"price_at_add"` // Base price when first added, in paise
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Cart is the per-user collection of cart items, in the order they were added
type Cart struct {
	UserID    uint       `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(productID uint) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// add appends a new line or increments an existing one. The price snapshot of an existing line is kept.
func (c *Cart) add(productID uint, quantity int, price int64, now time.Time) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items[i].Quantity += quantity
		c.Items[i].UpdatedAt = now
		return
	}

	c.Items = append(c.Items, CartItem{
		UserID:     c.UserID,
		ProductID:  productID,
		Quantity:   quantity,
		PriceAtAdd: price,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (c *Cart) setQuantity(productID uint, quantity int, now time.Time) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = quantity
	c.Items[i].UpdatedAt = now
	return true
}

func (c *Cart) remove(productID uint) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Line is a cart item priced against the current catalog
type Line struct {
	ProductID      uint      `json:"product_id"`
	Name           string    `json:"name"`
	Image          string    `json:"image"`
	Quantity       int       `json:"quantity"`
	PriceAtAdd     int64     `json:"price_at_add"`
	UnitPrice      int64     `json:"unit_price"`
	Offer          float64   `json:"offer"`
	EffectivePrice int64     `json:"effective_price"`
	LineTotal      int64     `json:"line_total"`
	Savings        int64     `json:"savings"`
	Available      bool      `json:"available"`
	AddedAt        time.Time `json:"added_at"`
}

// View is the priced cart returned to callers
type View struct {
	UserID        uint      `json:"user_id"`
	Items         []Line    `json:"items"`
	ItemCount     int       `json:"item_count"`     // Number of distinct lines
	TotalQuantity int       `json:"total_quantity"` // Sum of quantities of available lines
	Gross         int64     `json:"gross"`
	Total         int64     `json:"total"`
	Savings       int64     `json:"savings"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasUnavailable reports whether any line points at a product that is gone or inactive
func (v *View) HasUnavailable() bool {
	for _, line := range v.Items {
		if !line.Available {
			return true
		}
	}
	return false
}
