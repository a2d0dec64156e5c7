package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/luxe-store/internal/domain/inventory"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (LUXE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (LUXE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis URL for idempotency records and carts; in-process stores when empty" flag:"redis-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (LUXE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Debug        bool   `default:"false" usage:"Expose internal error detail in API responses"`
	Gateway      GatewayConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// GatewayConfig configures the card payment gateway.
type GatewayConfig struct {
	URL       string        `default:"https://api.stripe.com" usage:"Payment gateway base URL" flag:"gateway-url"`
	SecretKey string        `usage:"Payment gateway secret key; card payments are disabled when empty" flag:"gateway-secret-key"`
	Currency  string        `default:"inr" usage:"Currency for payment intents"`
	Timeout   time.Duration `default:"10s" usage:"Per-call gateway timeout" flag:"gateway-timeout"`
}

// CheckoutConfig tunes checkout policy.
type CheckoutConfig struct {
	CODStockPolicy        string        `default:"strict" usage:"Stock policy for cash-on-delivery orders: strict or backorder" flag:"cod-stock-policy"`
	IdempotencyTTL        time.Duration `default:"24h" usage:"How long idempotency keys are remembered" flag:"idempotency-ttl"`
	ClaimTTL              time.Duration `default:"2m" usage:"How long an unfinished checkout holds its idempotency key" flag:"idempotency-claim-ttl"`
	SimulatedPaymentDelay time.Duration `default:"2s" usage:"Delay before placeholder payments confirm" flag:"simulated-payment-delay"`
	SimulatePlaceholders  bool          `default:"true" usage:"Accept UPI, net banking and wallet payments with simulated confirmation" flag:"simulate-placeholders"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LUXE",
		Files:     []string{"config.yaml", "/etc/luxe/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set LUXE_DATABASE_URL or DATABASE_URL")
	}
	if _, err := inventory.ParseMode(c.Checkout.CODStockPolicy); err != nil {
		return errors.Wrap(err, "checkout.codStockPolicy")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's LUXE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
