package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notify        NotifyConfig
	Cron          CronConfig
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
	Env          string `envconfig:"NANUMLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"NANUMLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NANUMLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NANUMLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NANUMLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NANUMLINK_DB_DSN"`
	Driver string `envconfig:"NANUMLINK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"NANUMLINK_DB_HOST"`
	Port     int    `envconfig:"NANUMLINK_DB_PORT" default:"5432"`
	User     string `envconfig:"NANUMLINK_DB_USER"`
	Password string `envconfig:"NANUMLINK_DB_PASSWORD"`
	Name     string `envconfig:"NANUMLINK_DB_NAME"`
	SSLMode  string `envconfig:"NANUMLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NANUMLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NANUMLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NANUMLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NANUMLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NANUMLINK_REDIS_URL" required:"true"`
	Password     string        `envconfig:"NANUMLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"NANUMLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NANUMLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NANUMLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NANUMLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NANUMLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NANUMLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NANUMLINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NANUMLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NANUMLINK_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"NANUMLINK_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the redis session allowlist TTL.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NANUMLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NANUMLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NANUMLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NANUMLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NANUMLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"NANUMLINK_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NANUMLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NANUMLINK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NANUMLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"NANUMLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NANUMLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"NANUMLINK_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"NANUMLINK_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"NANUMLINK_PUBSUB_DOMAIN_TOPIC" default:"nl-domain-events"`
	DomainSubscription string `envconfig:"NANUMLINK_PUBSUB_DOMAIN_SUBSCRIPTION" default:"nl-domain-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NANUMLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NANUMLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NANUMLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"NANUMLINK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"NANUMLINK_CRON_LOCK_TTL" default:"30m"`
}

type NotifyConfig struct {
	FromAddress  string        `envconfig:"NANUMLINK_NOTIFY_FROM_EMAIL" default:"no-reply@nanumlink.org"`
	WebhookURL   string        `envconfig:"NANUMLINK_NOTIFY_WEBHOOK_URL"`
	ProcessedTTL time.Duration `envconfig:"NANUMLINK_NOTIFY_PROCESSED_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range fallbackDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
