package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// BARFLOW_* names so the prefix only matters for unlabeled fields.
const EnvPrefix = "BARFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BARFLOW_APP_ENV"
	EnvPort     = "BARFLOW_APP_PORT"
	EnvDBDSN    = "BARFLOW_DB_DSN"
	EnvDBHost   = "BARFLOW_DB_HOST"
	EnvDBUser   = "BARFLOW_DB_USER"
	EnvDBName   = "BARFLOW_DB_NAME"
	EnvRedisURL = "BARFLOW_REDIS_URL"

	EnvJWTSecret  = "BARFLOW_JWT_SECRET"
	EnvJWTIssuer  = "BARFLOW_JWT_ISSUER"
	EnvJWTExpMins = "BARFLOW_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
