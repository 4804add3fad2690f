// internal/infrastructure/database/postgres/address_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmart/storefront/internal/domain/user"
	"gorm.io/gorm"
)

// AddressRepository handles address data operations
type AddressRepository struct {
	db *gorm.DB
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) Create(ctx context.Context, address *user.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *AddressRepository) Update(ctx context.Context, address *user.Address) error {
	return r.db.WithContext(ctx).Save(address).Error
}

func (r *AddressRepository) Delete(ctx context.Context, userID, addressID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&user.Address{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByID returns nil when the address is missing or owned by another user
func (r *AddressRepository) FindByID(ctx context.Context, userID, addressID uint) (*user.Address, error) {
	var address user.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}
	return &address, nil
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID uint) ([]user.Address, error) {
	addresses := []user.Address{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&addresses).Error
	return addresses, err
}
