package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/infrastructure/memory"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []order.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]order.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newLedger(t *testing.T) (*order.Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return order.NewService(memory.NewOrderRepository(), pub, logger.Discard()), pub
}

func placeOrder(t *testing.T, svc *order.Service, userID uint, items ...order.OrderItem) *order.Order {
	t.Helper()
	o := &order.Order{
		UserID:      userID,
		PaymentMode: order.PaymentModeCashOnDelivery,
		Items:       items,
		ShippingAddress: order.ShippingAddress{
			FullName: "Asha Rao",
			City:     "Bengaluru",
		},
	}
	o.Amount = o.ItemsTotal()
	require.NoError(t, svc.Create(context.Background(), o))
	return o
}

func threeItems() []order.OrderItem {
	return []order.OrderItem{
		{ProductID: 1, Name: "Rice", Quantity: 1, BasePrice: 20000, Offer: 25, Price: 15000},
		{ProductID: 2, Name: "Dal", Quantity: 2, BasePrice: 999, Offer: 50, Price: 499},
		{ProductID: 3, Name: "Ghee", Quantity: 1, BasePrice: 65000, Price: 65000},
	}
}

func TestCreate(t *testing.T) {
	svc, pub := newLedger(t)
	o := placeOrder(t, svc, 1, threeItems()...)

	assert.NotZero(t, o.ID)
	assert.Regexp(t, `^QM-\d{8}-[0-9A-F]{8}$`, o.OrderNumber)
	assert.Equal(t, order.OrderStatusPending, o.Status)
	assert.Equal(t, int64(15000+998+65000), o.Amount)
	assert.Equal(t, "INR", o.Currency)
	for _, item := range o.Items {
		assert.Equal(t, order.ItemStatusPending, item.Status)
		assert.NotZero(t, item.ID)
	}
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, order.OrderStatusPending, o.StatusHistory[0].To)
	assert.Equal(t, []order.EventType{order.EventOrderPlaced}, pub.types())
}

func TestCreate_RejectsMismatchedAmount(t *testing.T) {
	svc, _ := newLedger(t)
	o := &order.Order{UserID: 1, Items: threeItems(), Amount: 1}
	err := svc.Create(context.Background(), o)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	err = svc.Create(context.Background(), &order.Order{UserID: 1})
	assert.ErrorIs(t, err, apperror.ErrEmptyCart)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order is cancelled and repeat is a no-op", func(t *testing.T) {
		svc, pub := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)

		cancelled, err := svc.CancelOrder(ctx, 1, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)

		again, err := svc.CancelOrder(ctx, 1, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, again.Status)
		assert.Len(t, again.StatusHistory, 2)
		assert.Equal(t, []order.EventType{order.EventOrderPlaced, order.EventOrderCancelled}, pub.types())
	})

	t.Run("delivered order cannot be cancelled", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)
		_, err := svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)

		_, err = svc.CancelOrder(ctx, 1, o.ID)
		require.ErrorIs(t, err, apperror.ErrCannotCancelDelivered)
		appErr, _ := apperror.As(err)
		assert.Equal(t, "delivered", appErr.Current)
		assert.Equal(t, "cancelled", appErr.Requested)
		assert.Equal(t, apperror.KindStateConflict, appErr.Kind)
	})

	t.Run("returned order cannot be cancelled", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)
		_, err := svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)
		_, err = svc.ReturnOrder(ctx, 1, o.ID, "")
		require.NoError(t, err)

		_, err = svc.CancelOrder(ctx, 1, o.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("another user's order is not found", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)

		_, err := svc.CancelOrder(ctx, 2, o.ID)
		assert.ErrorIs(t, err, apperror.ErrOrderNotFound)

		got, err := svc.Get(ctx, 1, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPending, got.Status)
	})
}

func TestReturnOrder(t *testing.T) {
	ctx := context.Background()
	svc, pub := newLedger(t)
	o := placeOrder(t, svc, 1, threeItems()...)

	_, err := svc.ReturnOrder(ctx, 1, o.ID, "changed my mind")
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = svc.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)

	returned, err := svc.ReturnOrder(ctx, 1, o.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusReturned, returned.Status)
	assert.Equal(t, o.Amount, returned.Amount)
	for _, item := range returned.Items {
		assert.Equal(t, order.ItemStatusReturned, item.Status)
		assert.Equal(t, "changed my mind", item.ReturnReason)
	}
	assert.Contains(t, pub.types(), order.EventOrderReturned)

	_, err = svc.ReturnOrder(ctx, 1, o.ID, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestReturnItem(t *testing.T) {
	ctx := context.Background()

	t.Run("reason is checked before anything else", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)

		for _, reason := range []string{"", "   ", "<b></b>"} {
			_, err := svc.ReturnItem(ctx, 1, o.ID, o.Items[0].ID, reason)
			assert.ErrorIs(t, err, apperror.ErrReasonRequired)
		}

		_, err := svc.ReturnItem(ctx, 1, 9999, 9999, "")
		assert.ErrorIs(t, err, apperror.ErrReasonRequired)
	})

	t.Run("partial return keeps the order delivered", func(t *testing.T) {
		svc, pub := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)
		_, err := svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)

		updated, err := svc.ReturnItem(ctx, 1, o.ID, o.Items[1].ID, "Damaged on arrival")
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusDelivered, updated.Status)
		assert.Equal(t, order.ItemStatusDelivered, updated.Items[0].Status)
		assert.Equal(t, order.ItemStatusReturned, updated.Items[1].Status)
		assert.Equal(t, "Damaged on arrival", updated.Items[1].ReturnReason)
		assert.NotNil(t, updated.Items[1].ReturnedAt)
		assert.Equal(t, order.ItemStatusDelivered, updated.Items[2].Status)
		assert.Contains(t, pub.types(), order.EventItemReturned)
	})

	t.Run("returning every item never promotes the order", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)
		_, err := svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)

		var last *order.Order
		for _, item := range o.Items {
			last, err = svc.ReturnItem(ctx, 1, o.ID, item.ID, "not needed")
			require.NoError(t, err)
		}
		assert.Equal(t, order.OrderStatusDelivered, last.Status)
	})

	t.Run("state errors", func(t *testing.T) {
		svc, _ := newLedger(t)
		o := placeOrder(t, svc, 1, threeItems()...)

		_, err := svc.ReturnItem(ctx, 1, o.ID, o.Items[0].ID, "wrong size")
		assert.ErrorIs(t, err, apperror.ErrOrderNotDelivered)

		_, err = svc.ReturnItem(ctx, 1, o.ID, 9999, "wrong size")
		assert.ErrorIs(t, err, apperror.ErrItemNotFound)

		_, err = svc.ReturnItem(ctx, 2, o.ID, o.Items[0].ID, "wrong size")
		assert.ErrorIs(t, err, apperror.ErrOrderNotFound)

		_, err = svc.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)
		_, err = svc.ReturnItem(ctx, 1, o.ID, o.Items[0].ID, "wrong size")
		require.NoError(t, err)

		_, err = svc.ReturnItem(ctx, 1, o.ID, o.Items[0].ID, "wrong size")
		assert.ErrorIs(t, err, apperror.ErrAlreadyReturned)

		_, err = svc.ReturnOrder(ctx, 1, o.ID, "")
		require.NoError(t, err)
		_, err = svc.ReturnItem(ctx, 1, o.ID, o.Items[0].ID, "wrong size")
		assert.ErrorIs(t, err, apperror.ErrAlreadyReturned)
	})
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedger(t)
	o := placeOrder(t, svc, 1, threeItems()...)

	delivered, err := svc.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	for _, item := range delivered.Items {
		assert.Equal(t, order.ItemStatusDelivered, item.Status)
	}

	again, err := svc.MarkDelivered(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, again.StatusHistory, 2)

	cancelled := placeOrder(t, svc, 1, threeItems()...)
	_, err = svc.CancelOrder(ctx, 1, cancelled.ID)
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, cancelled.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = svc.MarkDelivered(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestListByUser_NewestFirst(t *testing.T) {
	svc, _ := newLedger(t)
	first := placeOrder(t, svc, 1, threeItems()...)
	second := placeOrder(t, svc, 1, threeItems()...)
	placeOrder(t, svc, 2, threeItems()...)

	orders, err := svc.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestPublishFailureDoesNotFailTheTransition(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := order.NewService(memory.NewOrderRepository(), pub, logger.Discard())
	o := placeOrder(t, svc, 1, threeItems()...)

	cancelled, err := svc.CancelOrder(context.Background(), 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, cancelled.Status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, order.CanTransition(order.OrderStatusPending, order.OrderStatusDelivered))
	assert.True(t, order.CanTransition(order.OrderStatusPending, order.OrderStatusCancelled))
	assert.True(t, order.CanTransition(order.OrderStatusDelivered, order.OrderStatusReturned))
	assert.False(t, order.CanTransition(order.OrderStatusDelivered, order.OrderStatusCancelled))
	assert.False(t, order.CanTransition(order.OrderStatusCancelled, order.OrderStatusPending))
	assert.False(t, order.CanTransition(order.OrderStatusReturned, order.OrderStatusDelivered))
}

func TestParsePaymentMode(t *testing.T) {
	mode, ok := order.ParsePaymentMode("COD")
	assert.True(t, ok)
	assert.Equal(t, order.PaymentModeCashOnDelivery, mode)

	mode, ok = order.ParsePaymentMode("online")
	assert.True(t, ok)
	assert.Equal(t, order.PaymentModeOnline, mode)

	_, ok = order.ParsePaymentMode("upi")
	assert.False(t, ok)
}
