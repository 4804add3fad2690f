package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/infrastructure/database/postgres"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestProductRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewProductRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE "products"."id" = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "offer", "is_active"}).
				AddRow(4, "Assam Tea 500g", 27999, 33.33, true))

		p, err := repo.FindByID(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, "Assam Tea 500g", p.Name)
		assert.Equal(t, int64(27999), p.Price)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewProductRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "products"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(ctx, 99)
		assert.ErrorIs(t, err, apperror.ErrProductNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewProductRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(ctx, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperror.ErrProductNotFound)
		assert.ErrorContains(t, err, "failed to find product")
	})
}

func TestAddressRepository_ScopedToOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("find returns nil for another user's address", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewAddressRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "addresses" WHERE \(?id = \$1 AND user_id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		address, err := repo.FindByID(ctx, 7, 5)
		require.NoError(t, err)
		assert.Nil(t, address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete reports whether a row went away", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewAddressRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "addresses" WHERE \(?id = \$1 AND user_id = \$2`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		deleted, err := repo.Delete(ctx, 7, 5)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get keeps insertion order", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewCartRepository(db)

		added := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE user_id = \$1 ORDER BY created_at ASC, id ASC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "price_at_add", "created_at", "updated_at"}).
				AddRow(1, 7, 3, 2, 64000, added, added).
				AddRow(2, 7, 1, 1, 89900, added.Add(time.Minute), added.Add(time.Hour)))

		c, err := repo.Get(ctx, 7)
		require.NoError(t, err)
		require.Len(t, c.Items, 2)
		assert.Equal(t, uint(3), c.Items[0].ProductID)
		assert.Equal(t, added.Add(time.Hour), c.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get on a user without a cart", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewCartRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "cart_items"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		c, err := repo.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, uint(7), c.UserID)
		assert.True(t, c.IsEmpty())
	})

	t.Run("saving an empty cart only deletes", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewCartRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "cart_items" WHERE user_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, &cart.Cart{UserID: 7}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a failed insert rolls back the delete", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewCartRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "cart_items"`).WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		err := repo.Save(ctx, &cart.Cart{UserID: 7, Items: []cart.CartItem{{ProductID: 1, Quantity: 2, PriceAtAdd: 89900}}})
		assert.ErrorContains(t, err, "failed to save cart items")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_Update(t *testing.T) {
	ctx := context.Background()
	placed := time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)

	expectLockedOrder := func(mock sqlmock.Sqlmock, status order.OrderStatus) {
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "amount", "created_at"}).
				AddRow(11, 7, string(status), 179800, placed))
		mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE order_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price", "status"}).
				AddRow(21, 11, 1, 2, 89900, "pending"))
		mock.ExpectQuery(`SELECT \* FROM "order_status_history" WHERE order_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "from_status", "to_status", "comment"}).
				AddRow(31, 11, "", "pending", "Order placed"))
	}

	t.Run("unknown order", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.Update(ctx, 11, func(*order.Order) (bool, error) {
			t.Fatal("mutation must not run")
			return false, nil
		})
		assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unchanged order is not written", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectBegin()
		expectLockedOrder(mock, order.OrderStatusCancelled)
		mock.ExpectCommit()

		o, err := repo.Update(ctx, 11, func(o *order.Order) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, o.Status)
		require.Len(t, o.Items, 1)
		require.Len(t, o.StatusHistory, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mutation error rolls back", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectBegin()
		expectLockedOrder(mock, order.OrderStatusDelivered)
		mock.ExpectRollback()

		conflict := apperror.StateConflict(apperror.CodeCannotCancelDelivered, "delivered", "cancelled", "nope")
		_, err := repo.Update(ctx, 11, func(*order.Order) (bool, error) {
			return false, conflict
		})
		assert.ErrorIs(t, err, apperror.ErrCannotCancelDelivered)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("changes are saved with new history rows", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectBegin()
		expectLockedOrder(mock, order.OrderStatusPending)
		mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "order_items" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "order_status_history"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(32))
		mock.ExpectCommit()

		o, err := repo.Update(ctx, 11, func(o *order.Order) (bool, error) {
			o.Status = order.OrderStatusDelivered
			o.Items[0].Status = order.ItemStatusDelivered
			o.StatusHistory = append(o.StatusHistory, order.OrderStatusHistory{
				From: order.OrderStatusPending,
				To:   order.OrderStatusDelivered,
			})
			return true, nil
		})
		require.NoError(t, err)
		require.Len(t, o.StatusHistory, 2)
		assert.Equal(t, uint(32), o.StatusHistory[1].ID)
		assert.Equal(t, uint(11), o.StatusHistory[1].OrderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_GatewayOrderIsSingleUse(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE payment_gateway_order_id = \$1`).
			WithArgs("order_small").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE payment_gateway_order_id = \$1`).
			WithArgs("order_fresh").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		used, err := repo.ExistsByGatewayOrderID(ctx, "order_small")
		require.NoError(t, err)
		assert.True(t, used)

		used, err = repo.ExistsByGatewayOrderID(ctx, "order_fresh")
		require.NoError(t, err)
		assert.False(t, used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation on create is a reused payment", func(t *testing.T) {
		db, mock := setupDB(t)
		repo := postgres.NewOrderRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "orders"`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_orders_payment_gateway_order_id"})
		mock.ExpectRollback()

		err := repo.Create(ctx, &order.Order{
			UserID:  7,
			Amount:  750000,
			Payment: order.PaymentRef{Gateway: "razorpay", GatewayOrderID: "order_small", PaymentID: "pay_1"},
		})
		assert.ErrorIs(t, err, apperror.ErrPaymentNotVerified)
	})
}
