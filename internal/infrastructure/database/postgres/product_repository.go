// internal/infrastructure/database/postgres/product_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

// ProductRepository reads the catalog table
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID returns the product whether active or not
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeProductNotFound, fmt.Sprintf("product %d not found", id))
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

// List pages through active products, optionally filtered by name
func (r *ProductRepository) List(ctx context.Context, search string, offset, limit int) ([]product.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{}).Where("is_active = ?", true)
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := []product.Product{}
	if err := query.Order("name ASC, id ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}
