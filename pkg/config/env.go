package config

const EnvPrefix = "LISTINI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                = "LISTINI_APP_ENV"
	EnvPort                  = "LISTINI_APP_PORT"
	EnvLogLevel              = "LISTINI_LOG_LEVEL"
	EnvDBDSN                 = "LISTINI_DB_DSN"
	EnvDBHost                = "LISTINI_DB_HOST"
	EnvDBPort                = "LISTINI_DB_PORT"
	EnvDBUser                = "LISTINI_DB_USER"
	EnvDBPassword            = "LISTINI_DB_PASSWORD"
	EnvDBName                = "LISTINI_DB_NAME"
	EnvRedisURL              = "LISTINI_REDIS_URL"
	EnvJWTSecret             = "LISTINI_JWT_SECRET"
	EnvJWTIssuer             = "LISTINI_JWT_ISSUER"
	EnvPricingLookupTimeout  = "LISTINI_PRICING_LOOKUP_TIMEOUT"
	EnvPricingLocalCacheSize = "LISTINI_PRICING_LOCAL_CACHE_SIZE"
	EnvPricingEditPermission = "LISTINI_PRICING_EDIT_PERMISSION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
