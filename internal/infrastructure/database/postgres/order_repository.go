// internal/infrastructure/database/postgres/order_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmart/storefront/internal/domain/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository handles order data operations
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order with its items and first history row. A second order for the same
// gateway order trips the unique index and is reported as a reused payment.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && o.Payment.GatewayOrderID != "" {
		return order.PaymentReusedError(o.Payment.GatewayOrderID)
	}
	return err
}

func (r *OrderRepository) ExistsByGatewayOrderID(ctx context.Context, gatewayOrderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("payment_gateway_order_id = ?", gatewayOrderID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up gateway order: %w", err)
	}
	return count > 0, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.find(r.db.WithContext(ctx), id, false)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint) ([]order.Order, error) {
	orders := []order.Order{}
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Update runs fn against the order while its row is locked with SELECT ... FOR UPDATE
func (r *OrderRepository) Update(ctx context.Context, id uint, fn order.Mutation) (*order.Order, error) {
	var updated *order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.find(tx, id, true)
		if err != nil {
			return err
		}

		changed, err := fn(o)
		if err != nil {
			return err
		}
		updated = o
		if !changed {
			return nil
		}

		if err := tx.Omit(clause.Associations).Save(o).Error; err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		for i := range o.Items {
			if err := tx.Save(&o.Items[i]).Error; err != nil {
				return fmt.Errorf("failed to save order item: %w", err)
			}
		}
		for i := range o.StatusHistory {
			if o.StatusHistory[i].ID != 0 {
				continue
			}
			o.StatusHistory[i].OrderID = o.ID
			if err := tx.Create(&o.StatusHistory[i]).Error; err != nil {
				return fmt.Errorf("failed to save status history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) find(db *gorm.DB, id uint, forUpdate bool) (*order.Order, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var o order.Order
	if err := db.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NotFoundError(id)
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	// Children are loaded without the lock clause; the order row lock guards them
	children := db.Session(&gorm.Session{NewDB: true})
	if err := children.Where("order_id = ?", id).Order("id ASC").Find(&o.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if err := children.Where("order_id = ?", id).Order("created_at ASC, id ASC").Find(&o.StatusHistory).Error; err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	return &o, nil
}
