// internal/domain/product/service.go
package product

import (
	"context"
	"strings"
)

// Repository reads the product catalog
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Product, error)
	List(ctx context.Context, search string, offset, limit int) ([]Product, int64, error)
}

// Service is the read side of the catalog used by cart and checkout
type Service struct {
	repo Repository
}

// NewService creates a new product service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetProduct retrieves a single product by ID, active or not
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	return s.repo.FindByID(ctx, id)
}

// GetProducts lists active products page by page
func (s *Service) GetProducts(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	products, total, err := s.repo.List(ctx, strings.TrimSpace(req.Search), offset, req.Limit)
	if err != nil {
		return nil, err
	}

	// Calculate pagination info
	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}
