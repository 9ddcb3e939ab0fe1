package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	PayHereSandboxCheckoutURL = "https://sandbox.payhere.lk/pay/checkout"
	PayHereLiveCheckoutURL    = "https://www.payhere.lk/pay/checkout"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvPayHereMerchantID     = "STOREFRONT_PAYHERE_MERCHANT_ID"
	EnvPayHereMerchantSecret = "STOREFRONT_PAYHERE_MERCHANT_SECRET"
	EnvPayHereCurrency       = "STOREFRONT_PAYHERE_CURRENCY"
	EnvPayHereSandbox        = "STOREFRONT_PAYHERE_SANDBOX"
	EnvPayHereReturnURL      = "STOREFRONT_PAYHERE_RETURN_URL"
	EnvPayHereCancelURL      = "STOREFRONT_PAYHERE_CANCEL_URL"
	EnvPayHereNotifyURL      = "STOREFRONT_PAYHERE_NOTIFY_URL"

	EnvOrdersStrictTotals = "STOREFRONT_ORDERS_STRICT_TOTALS"

	EnvRetentionPaymentSessionDays = "STOREFRONT_RETENTION_PAYMENT_SESSION_DAYS"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrderEmailSub = "STOREFRONT_PUBSUB_ORDER_EMAIL_SUBSCRIPTION"
	EnvPubSubOrderAuditSub = "STOREFRONT_PUBSUB_ORDER_AUDIT_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
