// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/qmart/storefront/internal/domain/checkout"
	"github.com/qmart/storefront/internal/domain/invoice"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/domain/payment"
	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/domain/user"
	"github.com/qmart/storefront/internal/infrastructure/database/postgres"
	redisdb "github.com/qmart/storefront/internal/infrastructure/database/redis"
	"github.com/qmart/storefront/internal/infrastructure/memory"
	"github.com/qmart/storefront/internal/infrastructure/messaging/kafka"
	"github.com/qmart/storefront/internal/interfaces/http"
	"github.com/qmart/storefront/internal/interfaces/http/handlers"
	"github.com/qmart/storefront/internal/interfaces/http/routes"
	"github.com/qmart/storefront/internal/pkg/auth"
	"github.com/qmart/storefront/internal/pkg/lock"
	"github.com/qmart/storefront/internal/pkg/logger"
	"github.com/qmart/storefront/internal/pkg/pdf"
	"github.com/qmart/storefront/internal/pkg/tracing"
	"github.com/qmart/storefront/internal/worker"
	"github.com/sirupsen/logrus"
)

// repositories is the storage the services run on
type repositories struct {
	products  product.Repository
	carts     cart.Repository
	addresses user.AddressRepository
	orders    order.Repository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise tracing: %v", err)
	}

	checks := map[string]http.HealthCheck{}

	// Connect to Redis when locks or carts live there
	var redisClient *redisdb.Client
	if cfg.NeedsRedis() {
		redisClient, err = redisdb.NewConnection(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		if err := redisClient.Health(ctx); err != nil {
			log.Fatalf("Redis health check failed: %v", err)
		}
		checks["redis"] = redisClient.Health
		log.Info("✅ Redis connected")
	}

	var repos repositories
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewConnection(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Health(ctx); err != nil {
			log.Fatalf("Database health check failed: %v", err)
		}
		checks["database"] = db.Health

		migrate(cfg, db, log)

		repos = repositories{
			products:  postgres.NewProductRepository(db.GetDB()),
			carts:     postgres.NewCartRepository(db.GetDB()),
			addresses: postgres.NewAddressRepository(db.GetDB()),
			orders:    postgres.NewOrderRepository(db.GetDB()),
		}
		if cfg.Storage.CartStore == config.DriverRedis {
			repos.carts = redisdb.NewCartRepository(redisClient.GetClient(), cfg.Storage.CartTTL)
			log.Info("🛒 Carts stored in Redis")
		}
		log.Info("✅ PostgreSQL connected")

	case config.DriverMemory:
		seed := postgres.DevProducts()
		for i := range seed {
			seed[i].ID = uint(i + 1)
		}
		repos = repositories{
			products:  memory.NewProductRepository(seed...),
			carts:     memory.NewCartRepository(),
			addresses: memory.NewAddressRepository(),
			orders:    memory.NewOrderRepository(),
		}
		log.Warn("⚠️  Using in-memory storage, data is lost on restart")
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Storage.LockDriver == config.DriverRedis {
		locker = lock.NewRedisLocker(redisClient.GetClient(), cfg.Storage.LockTTL, cfg.Storage.LockRetryDelay)
	}

	gateway, err := payment.NewGateway(cfg, log)
	if err != nil {
		log.Fatalf("Failed to configure payment gateway: %v", err)
	}

	var publisher order.EventPublisher = order.NewLogPublisher(log)
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic, log)
		defer producer.Close()
		publisher = producer
		log.Infof("📨 Publishing order events to %s", cfg.Kafka.OrderEventsTopic)
	}

	// Services
	catalog := product.NewService(repos.products)
	cartService := cart.NewService(repos.carts, catalog, locker, log)
	addressService := user.NewAddressService(repos.addresses, log)
	orderService := order.NewService(repos.orders, publisher, log)
	checkoutService := checkout.NewService(cartService, addressService, gateway, orderService, cfg.Payment.Currency, log)

	deps := http.Dependencies{
		Handlers: &routes.Handlers{
			Product:  handlers.NewProductHandler(catalog),
			Cart:     handlers.NewCartHandler(cartService),
			Address:  handlers.NewUserAddressHandler(addressService),
			Checkout: handlers.NewCheckoutHandler(checkoutService),
			Order:    handlers.NewOrderHandler(orderService),
			Invoice: handlers.NewInvoiceHandler(orderService,
				invoice.NewRenderer(cfg.Invoice.StoreName, cfg.Invoice.Footer), pdf.NewService()),
		},
		JWTManager: auth.NewJWTManager(cfg),
		Checks:     checks,
		Logger:     log,
	}
	if redisClient != nil {
		deps.Redis = redisClient.GetClient()
	}
	server := http.NewServer(cfg, deps)

	var fulfillment *worker.FulfillmentWorker
	if cfg.KafkaEnabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, cfg.Kafka.ConsumerGroup, log)
		fulfillment = worker.NewFulfillmentWorker(consumer, orderService, log)
		go func() {
			if err := fulfillment.Start(ctx); err != nil {
				log.WithError(err).Error("Fulfillment worker stopped")
			}
		}()
	}

	log.Info("✅ All systems operational!")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for interrupt signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
		}
	}
	stop()

	log.Info("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}
	if fulfillment != nil {
		if err := fulfillment.Stop(); err != nil {
			log.Errorf("Failed to stop fulfillment worker: %v", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Errorf("Failed to flush traces: %v", err)
	}

	log.Info("✅ Server shutdown completed")
}

// migrate applies the schema and seeds the development catalog
func migrate(cfg *config.Config, db *postgres.DB, log *logrus.Logger) {
	migration := postgres.NewMigration(db.GetDB())

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.Warnf("Index creation failed: %v", err)
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.Warnf("Data seeding failed: %v", err)
		}
	}
}
