package config

// EnvPrefix is the envconfig prefix for all PartsMatch settings.
const EnvPrefix = "partsmatch"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PARTSMATCH_DB_DSN"
	EnvDBHost = "PARTSMATCH_DB_HOST"
	EnvDBUser = "PARTSMATCH_DB_USER"
	EnvDBName = "PARTSMATCH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	EnvAppEnv    = "PARTSMATCH_APP_ENV"
	EnvAppPort   = "PARTSMATCH_APP_PORT"
	EnvRedisURL  = "PARTSMATCH_REDIS_URL"
	EnvJWTSecret = "PARTSMATCH_JWT_SECRET"
	EnvJWTIssuer = "PARTSMATCH_JWT_ISSUER"
)
