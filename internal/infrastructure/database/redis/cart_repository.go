// internal/infrastructure/database/redis/cart_repository.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/redis/go-redis/v9"
)

// CartRepository keeps each cart as one JSON document with a sliding TTL
type CartRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewCartRepository creates a Redis-backed cart repository
func NewCartRepository(rdb redis.Cmdable, ttl time.Duration) *CartRepository {
	return &CartRepository{rdb: rdb, ttl: ttl}
}

func cartKey(userID uint) string {
	return fmt.Sprintf("cart:user:%d", userID)
}

func (r *CartRepository) Get(ctx context.Context, userID uint) (*cart.Cart, error) {
	c := &cart.Cart{}
	found, err := GetJSON(ctx, r.rdb, cartKey(userID), c)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if !found {
		return &cart.Cart{UserID: userID, Items: []cart.CartItem{}}, nil
	}
	c.UserID = userID
	return c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, c.UserID)
	}
	if err := SetJSON(ctx, r.rdb, cartKey(c.UserID), c, r.ttl); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID uint) error {
	if err := r.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
