// Package config loads service configuration from the environment and an optional .env file using Viper.
package config

import (
	"fmt"
	"log"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/gsmwallet/server/internal/middleware"
)

// Service selects which required keys Load validates.
type Service string

const (
	ServiceAPI    Service = "api"
	ServiceLedger Service = "ledger"
	ServiceCLI    Service = "cli"
)

// RefundPolicy values.
const (
	RefundPolicyLiteral   = "literal"
	RefundPolicyRemaining = "remaining"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Port        string `mapstructure:"PORT"`

	// JWTSecret signs and verifies bearer tokens. Rotate via config only.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTTTL    string `mapstructure:"JWT_TTL"`

	OTPTTL                 string `mapstructure:"OTP_TTL"`
	OTPMaxAttempts         int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPRequestLimitPerHour int    `mapstructure:"OTP_REQUEST_LIMIT_PER_HOUR"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`

	// CustomerServiceURL is the base URL of cmd/api as seen from the ledger service.
	CustomerServiceURL string `mapstructure:"CUSTOMER_SERVICE_URL"`
	InternalAPIKey     string `mapstructure:"INTERNAL_API_KEY"`

	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	LedgerEventsExchange string `mapstructure:"LEDGER_EVENTS_EXCHANGE"`

	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileBatch    int    `mapstructure:"RECONCILE_BATCH"`

	RefundPolicy string `mapstructure:"REFUND_POLICY"`
	TopUpMax     string `mapstructure:"TOPUP_MAX"`

	// TrustedProxies lists the IPs and CIDRs whose X-Forwarded-For is believed.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
func Load(service Service) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "no such file") {
			log.Printf("level=warn component=config msg=\"failed to read .env; using environment\" err=%v", err)
		}
	}

	v.AutomaticEnv()

	port := "8080"
	if service == ServiceLedger {
		port = "8081"
	}
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PORT", port)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_REQUEST_LIMIT_PER_HOUR", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_RATE_LIMIT_PREFIX", "gsmwallet:rate_limit")
	v.SetDefault("CUSTOMER_SERVICE_URL", "")
	v.SetDefault("INTERNAL_API_KEY", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LEDGER_EVENTS_EXCHANGE", "ledger.events")
	v.SetDefault("RECONCILE_SCHEDULE", "@every 1m")
	v.SetDefault("RECONCILE_BATCH", 100)
	v.SetDefault("REFUND_POLICY", RefundPolicyLiteral)
	v.SetDefault("TOPUP_MAX", "1000.00")
	v.SetDefault("TRUSTED_PROXIES", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	logDatabaseTarget(cfg.DatabaseURL)

	switch cfg.RefundPolicy {
	case RefundPolicyLiteral, RefundPolicyRemaining:
	default:
		return nil, fmt.Errorf("REFUND_POLICY must be %q or %q, got %q", RefundPolicyLiteral, RefundPolicyRemaining, cfg.RefundPolicy)
	}
	if _, err := decimal.NewFromString(cfg.TopUpMax); err != nil {
		return nil, fmt.Errorf("TOPUP_MAX is not a decimal: %w", err)
	}
	if _, err := middleware.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if cfg.OTPMaxAttempts < 1 {
		return nil, fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}

	switch service {
	case ServiceAPI:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		if cfg.InternalAPIKey == "" {
			return nil, fmt.Errorf("INTERNAL_API_KEY environment variable is required")
		}
	case ServiceLedger:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		if cfg.CustomerServiceURL == "" {
			return nil, fmt.Errorf("CUSTOMER_SERVICE_URL environment variable is required")
		}
		if cfg.InternalAPIKey == "" {
			return nil, fmt.Errorf("INTERNAL_API_KEY environment variable is required")
		}
	}

	return &cfg, nil
}

// TokenTTL parses JWTTTL. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ChallengeTTL parses OTPTTL. Returns 5m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// TrustedProxyPrefixes parses TrustedProxies. Load has already validated it.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	prefixes, err := middleware.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil
	}
	return prefixes
}

// TopUpLimit returns the inclusive top-up ceiling.
func (c *Config) TopUpLimit() decimal.Decimal {
	d, err := decimal.NewFromString(c.TopUpMax)
	if err != nil {
		return decimal.NewFromInt(1000)
	}
	return d
}

// logDatabaseTarget logs connection details with the password left out.
func logDatabaseTarget(databaseURL string) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	user := u.User.Username()
	if user == "" {
		user = "(none)"
	}
	log.Printf("level=info component=config msg=\"db target\" host=%s port=%s db=%s user=%s", host, port, strings.TrimPrefix(u.Path, "/"), user)
}
