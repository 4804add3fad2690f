// internal/infrastructure/database/postgres/cart_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/qmart/storefront/internal/domain/cart"
	"gorm.io/gorm"
)

// CartRepository stores carts as rows of cart_items
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Get(ctx context.Context, userID uint) (*cart.Cart, error) {
	var items []cart.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	c := &cart.Cart{UserID: userID, Items: items}
	for _, item := range items {
		if item.UpdatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = item.UpdatedAt
		}
	}
	return c, nil
}

// Save replaces the user's rows with the cart contents in one transaction
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", c.UserID).Delete(&cart.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if c.IsEmpty() {
			return nil
		}

		items := make([]cart.CartItem, len(c.Items))
		for i, item := range c.Items {
			item.ID = 0
			item.UserID = c.UserID
			items[i] = item
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to save cart items: %w", err)
		}
		return nil
	})
}

func (r *CartRepository) Delete(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cart.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
