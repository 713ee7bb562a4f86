package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BOOKBARN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "BOOKBARN_APP_ENV"
	EnvPort       = "BOOKBARN_APP_PORT"
	EnvDBDSN      = "BOOKBARN_DB_DSN"
	EnvDBHost     = "BOOKBARN_DB_HOST"
	EnvDBUser     = "BOOKBARN_DB_USER"
	EnvDBName     = "BOOKBARN_DB_NAME"
	EnvRedisURL   = "BOOKBARN_REDIS_URL"
	EnvJWTSecret  = "BOOKBARN_JWT_SECRET"
	EnvJWTIssuer  = "BOOKBARN_JWT_ISSUER"
	EnvJWTExpMins = "BOOKBARN_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	PayPal       PayPalConfig
	Checkout     CheckoutConfig
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
	Env          string `envconfig:"BOOKBARN_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKBARN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKBARN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKBARN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKBARN_DB_DSN"`
	Driver string `envconfig:"BOOKBARN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKBARN_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKBARN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKBARN_DB_USER"`
	LegacyPassword string `envconfig:"BOOKBARN_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKBARN_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKBARN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKBARN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKBARN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKBARN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKBARN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKBARN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOOKBARN_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKBARN_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKBARN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKBARN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKBARN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKBARN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKBARN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKBARN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOOKBARN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOOKBARN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOOKBARN_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOOKBARN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOOKBARN_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BOOKBARN_STRIPE_API_KEY"`
	Secret string `envconfig:"BOOKBARN_STRIPE_SECRET"`
	Env    string `envconfig:"BOOKBARN_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayPalConfig struct {
	ClientID string `envconfig:"BOOKBARN_PAYPAL_CLIENT_ID"`
	Secret   string `envconfig:"BOOKBARN_PAYPAL_SECRET"`
	Env      string `envconfig:"BOOKBARN_PAYPAL_ENV" default:"sandbox"`
	Webhook  string `envconfig:"BOOKBARN_PAYPAL_WEBHOOK_ID"`
}

// IsLive reports whether the PayPal client should target the live API base.
func (p PayPalConfig) IsLive() bool {
	return strings.EqualFold(strings.TrimSpace(p.Env), "live")
}

type CheckoutConfig struct {
	Currency       string        `envconfig:"BOOKBARN_CHECKOUT_CURRENCY" default:"USD"`
	MinAmountCents int64         `envconfig:"BOOKBARN_CHECKOUT_MIN_AMOUNT_CENTS" default:"50"`
	IdempotencyTTL time.Duration `envconfig:"BOOKBARN_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
