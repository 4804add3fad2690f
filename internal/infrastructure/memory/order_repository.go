// internal/infrastructure/memory/order_repository.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/pkg/lock"
)

// OrderRepository keeps orders in process memory. Updates are serialised per order.
type OrderRepository struct {
	mu          sync.RWMutex
	locks       *lock.KeyedMutex
	orders      map[uint]order.Order
	nextOrderID uint
	nextItemID  uint
	nextHistID  uint
}

// NewOrderRepository creates an empty order store
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		locks:  lock.NewKeyedMutex(),
		orders: make(map[uint]order.Order),
	}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gw := o.Payment.GatewayOrderID; gw != "" && r.gatewayOrderUsed(gw) {
		return order.PaymentReusedError(gw)
	}

	r.nextOrderID++
	o.ID = r.nextOrderID
	for i := range o.Items {
		r.nextItemID++
		o.Items[i].ID = r.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.assignHistoryIDs(o)

	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uint) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.NotFoundError(id)
	}
	out := cloneOrder(&o)
	return &out, nil
}

func (r *OrderRepository) ExistsByGatewayOrderID(_ context.Context, gatewayOrderID string) (bool, error) {
	if gatewayOrderID == "" {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gatewayOrderUsed(gatewayOrderID), nil
}

// gatewayOrderUsed must be called with mu held
func (r *OrderRepository) gatewayOrderUsed(gatewayOrderID string) bool {
	for _, o := range r.orders {
		if o.Payment.GatewayOrderID == gatewayOrderID {
			return true
		}
	}
	return false
}

func (r *OrderRepository) ListByUser(_ context.Context, userID uint) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := []order.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(&o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *OrderRepository) Update(ctx context.Context, id uint, fn order.Mutation) (*order.Order, error) {
	unlock, err := r.locks.Lock(ctx, orderLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := fn(o)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignHistoryIDs(o)
	r.orders[id] = cloneOrder(o)
	return o, nil
}

func orderLockKey(id uint) string {
	return fmt.Sprintf("order:%d", id)
}

// assignHistoryIDs must be called with mu held
func (r *OrderRepository) assignHistoryIDs(o *order.Order) {
	for i := range o.StatusHistory {
		if o.StatusHistory[i].ID != 0 {
			continue
		}
		r.nextHistID++
		o.StatusHistory[i].ID = r.nextHistID
		o.StatusHistory[i].OrderID = o.ID
	}
}

func cloneOrder(o *order.Order) order.Order {
	out := *o
	out.Items = append([]order.OrderItem(nil), o.Items...)
	out.StatusHistory = append([]order.OrderStatusHistory(nil), o.StatusHistory...)
	return out
}
