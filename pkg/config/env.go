package config

const (
	EnvPrefix = "AGRICDECK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "AGRICDECK_APP_ENV"
	EnvPort     = "AGRICDECK_APP_PORT"
	EnvLogLevel = "AGRICDECK_LOG_LEVEL"

	EnvDBDSN  = "AGRICDECK_DB_DSN"
	EnvDBHost = "AGRICDECK_DB_HOST"
	EnvDBUser = "AGRICDECK_DB_USER"
	EnvDBName = "AGRICDECK_DB_NAME"

	EnvRedisURL = "AGRICDECK_REDIS_URL"

	EnvJWTSecret  = "AGRICDECK_JWT_SECRET"
	EnvJWTIssuer  = "AGRICDECK_JWT_ISSUER"
	EnvJWTExpMins = "AGRICDECK_JWT_EXPIRATION_MINUTES"

	EnvCommissionPercent   = "AGRICDECK_COMMISSION_PERCENT"
	EnvMinWithdrawalAmount = "AGRICDECK_MIN_WITHDRAWAL_AMOUNT"
	EnvDefaultDeliveryFee  = "AGRICDECK_DEFAULT_DELIVERY_FEE"

	EnvPaystackSecretKey    = "AGRICDECK_PAYSTACK_SECRET_KEY"
	EnvFlutterwaveSecretKey = "AGRICDECK_FLUTTERWAVE_SECRET_KEY"
	EnvKwikAPIKey           = "AGRICDECK_KWIK_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
