package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, ProviderRazorpay, cfg.Payment.Provider)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "Q-Mart", cfg.Invoice.StoreName)
	assert.False(t, cfg.KafkaEnabled())
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "memory")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PAYMENT_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, ProviderStripe, cfg.Payment.Provider)
	assert.Equal(t, 3*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.NeedsRedis())
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "production"},
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "db", Name: "qmart", User: "qmart"},
			Redis:    RedisConfig{Host: "redis"},
			JWT:      JWTConfig{Secret: testSecret},
			Storage: StorageConfig{
				Driver:     DriverPostgres,
				CartStore:  DriverPostgres,
				LockDriver: DriverRedis,
				LockTTL:    15 * time.Second,
			},
			Payment: PaymentConfig{
				Provider: ProviderRazorpay,
				Timeout:  10 * time.Second,
				Razorpay: RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "secret"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "mongo" }, "STORAGE_DRIVER"},
		{"unknown cart store", func(c *Config) { c.Storage.CartStore = "memcached" }, "CART_STORE"},
		{"missing razorpay secret in production", func(c *Config) { c.Payment.Razorpay.KeySecret = "" }, "RAZORPAY_KEY_SECRET"},
		{"missing razorpay secret in development", func(c *Config) {
			c.App.Environment = "development"
			c.Payment.Razorpay.KeySecret = ""
		}, ""},
		{"unknown provider", func(c *Config) { c.Payment.Provider = "paypal" }, "PAYMENT_PROVIDER"},
		{"missing redis host", func(c *Config) { c.Redis.Host = "" }, "REDIS_HOST"},
		{"memory locks without redis", func(c *Config) {
			c.Redis.Host = ""
			c.Storage.LockDriver = DriverMemory
		}, ""},
		{"lock expires during payment call", func(c *Config) { c.Payment.Timeout = 20 * time.Second }, "LOCK_TTL"},
		{"lock as long as payment call", func(c *Config) { c.Storage.LockTTL = 10 * time.Second }, "PAYMENT_TIMEOUT"},
		{"memory locks never expire", func(c *Config) {
			c.Storage.LockDriver = DriverMemory
			c.Payment.Timeout = 20 * time.Second
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
