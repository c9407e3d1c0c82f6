package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Platform     PlatformConfig
	Paystack     PaystackConfig
	Flutterwave  FlutterwaveConfig
	Kwik         KwikConfig
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
	Env          string `envconfig:"AGRICDECK_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRICDECK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGRICDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRICDECK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGRICDECK_DB_DSN"`
	Driver string `envconfig:"AGRICDECK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGRICDECK_DB_HOST"`
	LegacyPort     int    `envconfig:"AGRICDECK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGRICDECK_DB_USER"`
	LegacyPassword string `envconfig:"AGRICDECK_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGRICDECK_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGRICDECK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRICDECK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRICDECK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRICDECK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRICDECK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRICDECK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGRICDECK_REDIS_ADDR"`
	Password     string        `envconfig:"AGRICDECK_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRICDECK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRICDECK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRICDECK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRICDECK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRICDECK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRICDECK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGRICDECK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGRICDECK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGRICDECK_JWT_EXPIRATION_MINUTES" default:"43200"`
}

// PlatformConfig captures the marketplace-wide business settings. It is
// loaded once at process start and passed by reference into the services
// that need it; nothing mutates it afterwards.
type PlatformConfig struct {
	CommissionPercent     decimal.Decimal `envconfig:"AGRICDECK_COMMISSION_PERCENT" default:"5.0"`
	MinWithdrawalAmount   decimal.Decimal `envconfig:"AGRICDECK_MIN_WITHDRAWAL_AMOUNT" default:"1000"`
	DefaultDeliveryFee    decimal.Decimal `envconfig:"AGRICDECK_DEFAULT_DELIVERY_FEE" default:"500"`
	OrderNumberPrefix     string          `envconfig:"AGRICDECK_ORDER_NUMBER_PREFIX" default:"AGD"`
	WithdrawalRefPrefix   string          `envconfig:"AGRICDECK_WITHDRAWAL_REF_PREFIX" default:"WD"`
	WebhookIdempotencyTTL time.Duration   `envconfig:"AGRICDECK_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type PaystackConfig struct {
	SecretKey string        `envconfig:"AGRICDECK_PAYSTACK_SECRET_KEY"`
	PublicKey string        `envconfig:"AGRICDECK_PAYSTACK_PUBLIC_KEY"`
	BaseURL   string        `envconfig:"AGRICDECK_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout   time.Duration `envconfig:"AGRICDECK_PAYSTACK_TIMEOUT" default:"10s"`
}

type FlutterwaveConfig struct {
	SecretKey   string        `envconfig:"AGRICDECK_FLUTTERWAVE_SECRET_KEY"`
	PublicKey   string        `envconfig:"AGRICDECK_FLUTTERWAVE_PUBLIC_KEY"`
	BaseURL     string        `envconfig:"AGRICDECK_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com/v3"`
	CallbackURL string        `envconfig:"AGRICDECK_FLUTTERWAVE_CALLBACK_URL"`
	VerifHash   string        `envconfig:"AGRICDECK_FLUTTERWAVE_VERIF_HASH"`
	Timeout     time.Duration `envconfig:"AGRICDECK_FLUTTERWAVE_TIMEOUT" default:"10s"`
}

type KwikConfig struct {
	APIKey  string        `envconfig:"AGRICDECK_KWIK_API_KEY"`
	BaseURL string        `envconfig:"AGRICDECK_KWIK_API_URL" default:"https://api.kwik.delivery/v1"`
	Timeout time.Duration `envconfig:"AGRICDECK_KWIK_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGRICDECK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGRICDECK_AUTO_MIGRATE" default:"false"`
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
