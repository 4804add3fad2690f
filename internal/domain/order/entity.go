// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusReturned  OrderStatus = "returned"
)

// ItemStatus represents the status of a single order item
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusDelivered ItemStatus = "delivered"
	ItemStatusReturned  ItemStatus = "returned"
)

// PaymentMode represents how the customer pays
type PaymentMode string

const (
	PaymentModeOnline         PaymentMode = "online"
	PaymentModeCashOnDelivery PaymentMode = "cod"
)

// ParsePaymentMode accepts the wire names of the supported payment modes
func ParsePaymentMode(s string) (PaymentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online":
		return PaymentModeOnline, true
	case "cod", "cash_on_delivery":
		return PaymentModeCashOnDelivery, true
	default:
		return "", false
	}
}

// Order represents the order entity
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"not null;size:20;default:'pending'" json:"status"`
	PaymentMode PaymentMode `gorm:"not null;size:20" json:"payment_mode"`

	// Financial Information
	Amount   int64  `gorm:"not null" json:"amount"` // In paise, frozen at checkout
	Savings  int64  `gorm:"default:0" json:"savings"`
	Currency string `gorm:"size:3;default:'INR'" json:"currency"`

	// Value copy of the address chosen at checkout
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Payment         PaymentRef      `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	// Timestamps
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OrderID      uint       `gorm:"not null;index" json:"order_id"`
	ProductID    uint       `gorm:"not null;index" json:"product_id"`
	Name         string     `gorm:"not null;size:255" json:"name"`
	Image        string     `gorm:"size:500" json:"image"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	BasePrice    int64      `gorm:"not null" json:"base_price"` // Catalog price at checkout
	Offer        float64    `gorm:"default:0" json:"offer"`
	Price        int64      `gorm:"not null" json:"price"` // Unit price with the offer applied
	Status       ItemStatus `gorm:"not null;size:20;default:'pending'" json:"status"`
	ReturnReason string     `gorm:"type:text" json:"return_reason,omitempty"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ShippingAddress is the address snapshot stored on an order
type ShippingAddress struct {
	FullName    string `gorm:"size:100" json:"full_name"`
	Phone       string `gorm:"size:10" json:"phone"`
	AddressLine string `gorm:"size:255" json:"address_line"`
	City        string `gorm:"size:100" json:"city"`
	State       string `gorm:"size:100" json:"state"`
	Pincode     string `gorm:"size:6" json:"pincode"`
}

// PaymentRef identifies the verified gateway payment behind an online order
type PaymentRef struct {
	Gateway        string `gorm:"size:20" json:"gateway,omitempty"`
	GatewayOrderID string `gorm:"size:100" json:"gateway_order_id,omitempty"` // Unique when set, see migrations
	PaymentID      string `gorm:"size:100" json:"payment_id,omitempty"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	From      OrderStatus `gorm:"column:from_status;size:20" json:"from"`
	To        OrderStatus `gorm:"column:to_status;not null;size:20" json:"to"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber(now time.Time) string {
	// Format: QM-YYYYMMDD-XXXXXXXX
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("QM-%s-%s", now.Format("20060102"), suffix)
}

// LineTotal returns the frozen price of the item line
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ItemsTotal sums the frozen item lines
func (o *Order) ItemsTotal() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].LineTotal()
	}
	return total
}

// Item returns the item with the given ID, or nil
func (o *Order) Item(itemID uint) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending
}

// CanBeReturned checks if the whole order can be returned
func (o *Order) CanBeReturned() bool {
	return o.Status == OrderStatusDelivered
}

// addStatusHistory records a status change; rows without an ID are persisted by the repository
func (o *Order) addStatusHistory(from, to OrderStatus, comment string, at time.Time) {
	o.StatusHistory = append(o.StatusHistory, OrderStatusHistory{
		OrderID:   o.ID,
		From:      from,
		To:        to,
		Comment:   comment,
		CreatedAt: at,
	})
}
