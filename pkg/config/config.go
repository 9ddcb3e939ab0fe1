package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	PayHere      PayHereConfig
	Orders       OrdersConfig
	Cart         CartConfig
	Retention    RetentionConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Mail         MailConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// Every invalid setting is reported together.
	if err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.PayHere.validate(),
		cfg.Outbox.validate(),
		cfg.Retention.validate(),
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PayHereConfig carries the merchant credentials and the hosted checkout URLs.
type PayHereConfig struct {
	MerchantID     string `envconfig:"STOREFRONT_PAYHERE_MERCHANT_ID" required:"true"`
	MerchantSecret string `envconfig:"STOREFRONT_PAYHERE_MERCHANT_SECRET" required:"true"`
	Currency       string `envconfig:"STOREFRONT_PAYHERE_CURRENCY" default:"LKR"`
	Sandbox        bool   `envconfig:"STOREFRONT_PAYHERE_SANDBOX" default:"true"`
	ReturnURL      string `envconfig:"STOREFRONT_PAYHERE_RETURN_URL" required:"true"`
	CancelURL      string `envconfig:"STOREFRONT_PAYHERE_CANCEL_URL" required:"true"`
	NotifyURL      string `envconfig:"STOREFRONT_PAYHERE_NOTIFY_URL" required:"true"`
}

// CheckoutURL returns the hosted checkout endpoint for the configured mode.
func (p PayHereConfig) CheckoutURL() string {
	if p.Sandbox {
		return PayHereSandboxCheckoutURL
	}
	return PayHereLiveCheckoutURL
}

func (p PayHereConfig) validate() error {
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return fmt.Errorf("%s must be a 3 letter currency code", EnvPayHereCurrency)
	}
	for env, raw := range map[string]string{
		EnvPayHereReturnURL: p.ReturnURL,
		EnvPayHereCancelURL: p.CancelURL,
		EnvPayHereNotifyURL: p.NotifyURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%s is not a valid url: %w", env, err)
		}
	}
	return nil
}

type OrdersConfig struct {
	StrictTotals bool `envconfig:"STOREFRONT_ORDERS_STRICT_TOTALS" default:"true"`
}

type CartConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_CART_CACHE_TTL" default:"10m"`
}

type RetentionConfig struct {
	PaymentSessionDays int `envconfig:"STOREFRONT_RETENTION_PAYMENT_SESSION_DAYS" default:"30"`
	OutboxDays         int `envconfig:"STOREFRONT_RETENTION_OUTBOX_DAYS" default:"30"`
}

func (r RetentionConfig) validate() error {
	if r.PaymentSessionDays < 1 || r.OutboxDays < 1 {
		return fmt.Errorf("retention windows must be at least one day")
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STOREFRONT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic            string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrderEmailSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDER_EMAIL_SUBSCRIPTION" required:"true"`
	OrderAuditSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDER_AUDIT_SUBSCRIPTION" required:"true"`
	MaxOutstandingMessages int    `envconfig:"STOREFRONT_PUBSUB_MAX_OUTSTANDING" default:"10"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"STOREFRONT_BIGQUERY_DATASET" default:"storefront"`
	OrderAuditTable string `envconfig:"STOREFRONT_BIGQUERY_ORDER_AUDIT_TABLE" default:"order_audit"`
}

type MailConfig struct {
	SMTPHost     string `envconfig:"STOREFRONT_SMTP_HOST"`
	SMTPPort     int    `envconfig:"STOREFRONT_SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"STOREFRONT_SMTP_USERNAME"`
	SMTPPassword string `envconfig:"STOREFRONT_SMTP_PASSWORD"`
	From         string `envconfig:"STOREFRONT_MAIL_FROM" default:"orders@localhost"`
}

// Enabled reports whether SMTP delivery is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.SMTPHost) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	if o.BatchSize < 1 || o.MaxAttempts < 1 || o.PollIntervalMS < 1 {
		return fmt.Errorf("outbox settings must be positive")
	}
	return nil
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
