// internal/infrastructure/memory/address_repository.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qmart/storefront/internal/domain/user"
)

// AddressRepository keeps addresses in process memory
type AddressRepository struct {
	mu     sync.RWMutex
	nextID uint
	rows   map[uint]user.Address
}

// NewAddressRepository creates an empty address store
func NewAddressRepository() *AddressRepository {
	return &AddressRepository{rows: make(map[uint]user.Address)}
}

func (r *AddressRepository) Create(_ context.Context, a *user.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	a.ID = r.nextID
	a.CreatedAt = now
	a.UpdatedAt = now
	r.rows[a.ID] = *a
	return nil
}

func (r *AddressRepository) Update(_ context.Context, a *user.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.UpdatedAt = time.Now().UTC()
	r.rows[a.ID] = *a
	return nil
}

func (r *AddressRepository) Delete(_ context.Context, userID, addressID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[addressID]
	if !ok || a.UserID != userID {
		return false, nil
	}
	delete(r.rows, addressID)
	return true, nil
}

func (r *AddressRepository) FindByID(_ context.Context, userID, addressID uint) (*user.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[addressID]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return &a, nil
}

func (r *AddressRepository) ListByUser(_ context.Context, userID uint) ([]user.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addresses := []user.Address{}
	for _, a := range r.rows {
		if a.UserID == userID {
			addresses = append(addresses, a)
		}
	}
	sort.Slice(addresses, func(i, j int) bool { return addresses[i].ID < addresses[j].ID })
	return addresses, nil
}
