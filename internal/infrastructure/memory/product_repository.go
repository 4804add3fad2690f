// internal/infrastructure/memory/product_repository.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/pkg/apperror"
)

// ProductRepository is an in-memory catalog
type ProductRepository struct {
	mu       sync.RWMutex
	products map[uint]product.Product
}

// NewProductRepository creates a catalog holding the given products
func NewProductRepository(products ...product.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[uint]product.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put adds or replaces a product
func (r *ProductRepository) Put(p product.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

// Remove deletes a product from the catalog
func (r *ProductRepository) Remove(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

func (r *ProductRepository) FindByID(_ context.Context, id uint) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperror.NotFound(apperror.CodeProductNotFound, fmt.Sprintf("product %d not found", id))
	}
	return &p, nil
}

func (r *ProductRepository) List(_ context.Context, search string, offset, limit int) ([]product.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search = strings.ToLower(search)
	var matched []product.Product
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []product.Product{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
