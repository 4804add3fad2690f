// internal/infrastructure/memory/cart_repository.go
package memory

import (
	"context"
	"sync"

	"github.com/qmart/storefront/internal/domain/cart"
)

// CartRepository keeps carts in process memory
type CartRepository struct {
	mu    sync.RWMutex
	carts map[uint]cart.Cart
}

// NewCartRepository creates an empty cart store
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[uint]cart.Cart)}
}

func (r *CartRepository) Get(_ context.Context, userID uint) (*cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[userID]
	if !ok {
		return &cart.Cart{UserID: userID, Items: []cart.CartItem{}}, nil
	}
	c.Items = append([]cart.CartItem(nil), c.Items...)
	return &c, nil
}

func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.IsEmpty() {
		delete(r.carts, c.UserID)
		return nil
	}
	stored := *c
	stored.Items = append([]cart.CartItem(nil), c.Items...)
	r.carts[c.UserID] = stored
	return nil
}

func (r *CartRepository) Delete(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}
