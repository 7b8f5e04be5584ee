package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SHOPSTACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPSTACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSTACK_APP_PORT" default:"4000"`
	LogLevel     string `envconfig:"SHOPSTACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSTACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSTACK_DB_DSN"`
	Driver string `envconfig:"SHOPSTACK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPSTACK_DB_HOST"`
	Port     int    `envconfig:"SHOPSTACK_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPSTACK_DB_USER"`
	Password string `envconfig:"SHOPSTACK_DB_PASSWORD"`
	Name     string `envconfig:"SHOPSTACK_DB_NAME"`
	SSLMode  string `envconfig:"SHOPSTACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSTACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSTACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSTACK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPSTACK_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSTACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSTACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSTACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSTACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSTACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPSTACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPSTACK_JWT_ISSUER" default:"shopstack"`
	ExpirationMinutes int    `envconfig:"SHOPSTACK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// StripeConfig is optional. An empty secret key selects the simulated payment
// backend at startup; checkout then settles orders synchronously.
type StripeConfig struct {
	SecretKey     string `envconfig:"SHOPSTACK_STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"SHOPSTACK_STRIPE_WEBHOOK_SECRET"`
}

// Configured reports whether a usable Stripe key is present. The placeholder
// key shipped in sample env files counts as absent.
func (s StripeConfig) Configured() bool {
	key := strings.TrimSpace(s.SecretKey)
	return key != "" && key != "sk_test_xxx"
}

type CheckoutConfig struct {
	SuccessURL         string        `envconfig:"SHOPSTACK_CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	CancelURL          string        `envconfig:"SHOPSTACK_CHECKOUT_CANCEL_URL" default:"http://localhost:3000/checkout/cancel"`
	WebhookIdemTTL     time.Duration `envconfig:"SHOPSTACK_CHECKOUT_WEBHOOK_IDEM_TTL" default:"720h"`
	SessionCartTTL     time.Duration `envconfig:"SHOPSTACK_CHECKOUT_SESSION_CART_TTL" default:"0"`
	DefaultPromoCode   string        `envconfig:"SHOPSTACK_CHECKOUT_DEFAULT_PROMO" default:"SAVE10"`
	DefaultCurrency    string        `envconfig:"SHOPSTACK_CHECKOUT_DEFAULT_CURRENCY" default:"usd"`
	DefaultSessionName string        `envconfig:"SHOPSTACK_CHECKOUT_ANON_SESSION" default:"anon"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPSTACK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"SHOPSTACK_DB_HOST": db.Host,
		"SHOPSTACK_DB_USER": db.User,
		"SHOPSTACK_DB_NAME": db.Name,
	}
	for _, key := range []string{"SHOPSTACK_DB_HOST", "SHOPSTACK_DB_USER", "SHOPSTACK_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either SHOPSTACK_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
