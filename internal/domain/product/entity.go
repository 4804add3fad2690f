// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/qmart/storefront/internal/domain/pricing"
)

// Product is the catalog entry the storefront reads. The catalog service owns writes.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SKU         string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"size:500" json:"image"`
	Price       int64     `gorm:"not null" json:"price"`           // Base price in paise
	Offer       float64   `gorm:"not null;default:0" json:"offer"` // Percentage off, 0-100
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// EffectivePrice is the unit price after the current offer
func (p *Product) EffectivePrice() int64 {
	return pricing.EffectivePrice(p.Price, p.Offer)
}

// ListRequest represents product list query parameters
type ListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListResponse is a page of active products
type ListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}
