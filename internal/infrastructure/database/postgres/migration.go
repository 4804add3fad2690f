// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		&product.Product{},
		&user.Address{},
		&cart.CartItem{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	// One order per gateway payment. Required, so it is not left to CreateIndexes.
	if err := m.db.Exec(uniqueGatewayOrderIndex).Error; err != nil {
		return fmt.Errorf("failed to create gateway order index: %w", err)
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

const uniqueGatewayOrderIndex = "CREATE UNIQUE INDEX IF NOT EXISTS uniq_orders_payment_gateway_order_id " +
	"ON orders(payment_gateway_order_id) WHERE payment_gateway_order_id <> ''"

// CreateIndexes creates additional indexes for the hot queries
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_active_name ON products(is_active, name)",

		// Address indexes
		"CREATE INDEX IF NOT EXISTS idx_addresses_user_created ON addresses(user_id, created_at)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_created ON cart_items(user_id, created_at, id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts a small catalog for local development
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// DevProducts is the development catalog, shared with the in-memory store
func DevProducts() []product.Product {
	return []product.Product{
		{SKU: "QM-RICE-5KG", Name: "Basmati Rice 5kg", Image: "/images/basmati-rice.jpg", Price: 89900, Offer: 10, IsActive: true},
		{SKU: "QM-DAL-1KG", Name: "Toor Dal 1kg", Image: "/images/toor-dal.jpg", Price: 18500, Offer: 0, IsActive: true},
		{SKU: "QM-GHEE-1L", Name: "Cow Ghee 1L", Image: "/images/cow-ghee.jpg", Price: 64000, Offer: 15, IsActive: true},
		{SKU: "QM-TEA-500G", Name: "Assam Tea 500g", Image: "/images/assam-tea.jpg", Price: 27999, Offer: 33.33, IsActive: true},
		{SKU: "QM-SOAP-OLD", Name: "Sandal Soap (discontinued)", Image: "/images/sandal-soap.jpg", Price: 4500, Offer: 0, IsActive: false},
	}
}

func (m *Migration) seedProducts() error {
	log.Println("🛍️ Seeding products...")

	for _, p := range DevProducts() {
		var existing product.Product
		result := m.db.Where("sku = ?", p.SKU).First(&existing)
		if result.Error == nil {
			log.Printf("⏭️ Product already exists: %s", p.SKU)
			continue
		}

		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
		log.Printf("✅ Created product: %s", p.Name)
	}

	return nil
}
