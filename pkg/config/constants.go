package config

// EnvPrefix namespaces every environment variable read by this service.
const EnvPrefix = "nanumlink"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "NANUMLINK_APP_ENV"
	EnvDBDSN  = "NANUMLINK_DB_DSN"
	EnvDBHost = "NANUMLINK_DB_HOST"
	EnvDBUser = "NANUMLINK_DB_USER"
	EnvDBName = "NANUMLINK_DB_NAME"
)

var fallbackDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
