// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qmart/storefront/internal/domain/pricing"
	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/lock"
	"github.com/qmart/storefront/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Repository persists carts. Get returns an empty cart for a user without one.
type Repository interface {
	Get(ctx context.Context, userID uint) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID uint) error
}

// Catalog resolves products for live pricing
type Catalog interface {
	GetProduct(ctx context.Context, id uint) (*product.Product, error)
}

// ClearError reports that an order was committed but the cart could not be emptied afterwards
type ClearError struct {
	UserID uint
	Err    error
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("failed to clear cart for user %d: %v", e.UserID, e.Err)
}

func (e *ClearError) Unwrap() error {
	return e.Err
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Service handles cart business logic
type Service struct {
	repo    Repository
	catalog Catalog
	locker  lock.Locker
	logger  *logrus.Logger
	now     func() time.Time
}

// NewService creates a new cart service
func NewService(repo Repository, catalog Catalog, locker lock.Locker, logger *logrus.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		locker:  locker,
		logger:  logger,
		now:     time.Now,
	}
}

func lockKey(userID uint) string {
	return fmt.Sprintf("cart:user:%d", userID)
}

// Get returns the user's cart priced against the current catalog
func (s *Service) Get(ctx context.Context, userID uint) (*View, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return s.price(ctx, c)
}

// AddOrIncrement adds quantity of a product, creating the line if needed
func (s *Service) AddOrIncrement(ctx context.Context, userID, productID uint, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "quantity", "quantity must be at least 1")
	}

	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperror.NotFound(apperror.CodeProductNotFound, fmt.Sprintf("product %d not found", productID))
	}

	return s.mutate(ctx, userID, "add", func(c *Cart, now time.Time) error {
		c.add(productID, quantity, p.Price, now)
		return nil
	})
}

// SetQuantity replaces the quantity of an existing line
func (s *Service) SetQuantity(ctx context.Context, userID, productID uint, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "quantity", "quantity must be at least 1")
	}

	return s.mutate(ctx, userID, "set_quantity", func(c *Cart, now time.Time) error {
		if !c.setQuantity(productID, quantity, now) {
			return itemNotFound(productID)
		}
		return nil
	})
}

// Remove deletes a line from the cart
func (s *Service) Remove(ctx context.Context, userID, productID uint) (*View, error) {
	return s.mutate(ctx, userID, "remove", func(c *Cart, _ time.Time) error {
		if !c.remove(productID) {
			return itemNotFound(productID)
		}
		return nil
	})
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer s.release(unlock, userID)

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// Checkout runs fn against a priced snapshot of the cart while the user's cart lock is held.
// The cart is emptied only when fn succeeds. A failure to empty it afterwards is reported as *ClearError.
func (s *Service) Checkout(ctx context.Context, userID uint, fn func(view *View) error) error {
	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer s.release(unlock, userID)

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	view, err := s.price(ctx, c)
	if err != nil {
		return err
	}

	if err := fn(view); err != nil {
		return err
	}

	// The order is already committed; a cancelled request must not leave the cart behind.
	if err := s.repo.Delete(context.WithoutCancel(ctx), userID); err != nil {
		return &ClearError{UserID: userID, Err: err}
	}

	metrics.CartMutationsTotal.WithLabelValues("checkout_clear").Inc()
	return nil
}

func (s *Service) mutate(ctx context.Context, userID uint, operation string, fn func(c *Cart, now time.Time) error) (*View, error) {
	unlock, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer s.release(unlock, userID)

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	now := s.now()
	if err := fn(c, now); err != nil {
		return nil, err
	}
	c.UpdatedAt = now

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	metrics.CartMutationsTotal.WithLabelValues(operation).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"operation": operation,
		"lines":     len(c.Items),
	}).Debug("Cart updated")

	return s.price(ctx, c)
}

func (s *Service) acquire(ctx context.Context, userID uint) (lock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		return nil, apperror.Internal("failed to lock cart", err)
	}
	return unlock, nil
}

func (s *Service) release(unlock lock.Unlock, userID uint) {
	if err := unlock(); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to release cart lock")
	}
}

// price resolves every line against the catalog. Lines whose product is gone or inactive
// are kept but marked unavailable and left out of the totals.
func (s *Service) price(ctx context.Context, c *Cart) (*View, error) {
	view := &View{
		UserID:    c.UserID,
		Items:     make([]Line, 0, len(c.Items)),
		ItemCount: len(c.Items),
		UpdatedAt: c.UpdatedAt,
	}

	priced := make([]pricing.Item, 0, len(c.Items))
	for _, item := range c.Items {
		line := Line{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceAtAdd: item.PriceAtAdd,
			UnitPrice:  item.PriceAtAdd,
			AddedAt:    item.CreatedAt,
		}

		p, err := s.catalog.GetProduct(ctx, item.ProductID)
		switch {
		case errors.Is(err, apperror.ErrProductNotFound):
			// unavailable
		case err != nil:
			return nil, fmt.Errorf("failed to price cart: %w", err)
		default:
			line.Name = p.Name
			line.Image = p.Image
			line.UnitPrice = p.Price
			line.Offer = pricing.NormalizeOffer(p.Offer)
			line.Available = p.IsActive
		}

		pi := pricing.Item{BasePrice: line.UnitPrice, Offer: line.Offer, Quantity: line.Quantity}
		line.EffectivePrice = pricing.EffectivePrice(pi.BasePrice, pi.Offer)
		line.LineTotal = pricing.LineTotal(pi)
		line.Savings = pricing.Savings(pi)

		if line.Available {
			priced = append(priced, pi)
			view.TotalQuantity += line.Quantity
		}
		view.Items = append(view.Items, line)
	}

	summary := pricing.Summarize(priced)
	view.Gross = summary.Gross
	view.Total = summary.Total
	view.Savings = summary.Savings
	return view, nil
}

func itemNotFound(productID uint) error {
	return apperror.NotFound(apperror.CodeItemNotFound, fmt.Sprintf("product %d is not in the cart", productID))
}
