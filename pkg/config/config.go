package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	VerifyRateLimit VerifyRateLimitConfig
	FeatureFlags    FeatureFlagsConfig
	Eventing        EventingConfig
	GCP             GCPConfig
	PubSub          PubSubConfig
	Outbox          OutboxConfig
	Sendgrid        SendgridConfig
	Certificates    CertificatesConfig
	Maintenance     MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Certificates.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INNOINTERN_APP_ENV" required:"true"`
	Port         string `envconfig:"INNOINTERN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"INNOINTERN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INNOINTERN_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"INNOINTERN_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// VerifyBaseURL is the public origin without a trailing slash.
func (a AppConfig) VerifyBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
}

type ServiceConfig struct {
	Kind string `envconfig:"INNOINTERN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"INNOINTERN_DB_DSN"`
	Driver string `envconfig:"INNOINTERN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INNOINTERN_DB_HOST"`
	LegacyPort     int    `envconfig:"INNOINTERN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INNOINTERN_DB_USER"`
	LegacyPassword string `envconfig:"INNOINTERN_DB_PASSWORD"`
	LegacyName     string `envconfig:"INNOINTERN_DB_NAME"`
	LegacySSLMode  string `envconfig:"INNOINTERN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INNOINTERN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INNOINTERN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INNOINTERN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INNOINTERN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INNOINTERN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"INNOINTERN_REDIS_ADDR"`
	Password     string        `envconfig:"INNOINTERN_REDIS_PASSWORD"`
	DB           int           `envconfig:"INNOINTERN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INNOINTERN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INNOINTERN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INNOINTERN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INNOINTERN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INNOINTERN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"INNOINTERN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"INNOINTERN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"INNOINTERN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type VerifyRateLimitConfig struct {
	Window  time.Duration `envconfig:"INNOINTERN_VERIFY_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"INNOINTERN_VERIFY_RATE_LIMIT_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"INNOINTERN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"INNOINTERN_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"INNOINTERN_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"INNOINTERN_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	CertificateTopic        string `envconfig:"INNOINTERN_PUBSUB_CERTIFICATE_TOPIC" default:"iih-certificate-events"`
	CertificateSubscription string `envconfig:"INNOINTERN_PUBSUB_CERTIFICATE_SUBSCRIPTION" default:"iih-certificate-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"INNOINTERN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"INNOINTERN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"INNOINTERN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SendgridConfig struct {
	APIKey    string `envconfig:"INNOINTERN_SENDGRID_API_KEY"`
	FromEmail string `envconfig:"INNOINTERN_SENDGRID_FROM_EMAIL" default:"no-reply@innointernhub.com"`
	FromName  string `envconfig:"INNOINTERN_SENDGRID_FROM_NAME" default:"InnoInternHUB"`
}

// Enabled reports whether outbound email should go through SendGrid.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// MaintenanceConfig drives the maintenance worker's retention jobs.
type MaintenanceConfig struct {
	Interval                  time.Duration `envconfig:"INNOINTERN_MAINTENANCE_INTERVAL" default:"24h"`
	NotificationRetentionDays int           `envconfig:"INNOINTERN_MAINTENANCE_NOTIFICATION_RETENTION_DAYS" default:"90"`
	OutboxRetentionDays       int           `envconfig:"INNOINTERN_MAINTENANCE_OUTBOX_RETENTION_DAYS" default:"14"`
}

type CertificatesConfig struct {
	PlatformName          string `envconfig:"INNOINTERN_CERT_PLATFORM_NAME" default:"InnoInternHUB"`
	IDPrefix              string `envconfig:"INNOINTERN_CERT_ID_PREFIX" default:"IIH"`
	AwardPoints           int    `envconfig:"INNOINTERN_CERT_AWARD_POINTS" default:"100"`
	MaxIdentifierAttempts int    `envconfig:"INNOINTERN_CERT_MAX_ID_ATTEMPTS" default:"5"`
	IssueConcurrency      int    `envconfig:"INNOINTERN_CERT_ISSUE_CONCURRENCY" default:"4"`
	FontPath              string `envconfig:"INNOINTERN_CERT_FONT_PATH"`
	BoldFontPath          string `envconfig:"INNOINTERN_CERT_BOLD_FONT_PATH"`
}

func (c CertificatesConfig) validate() error {
	prefix := strings.TrimSpace(c.IDPrefix)
	if prefix == "" {
		return fmt.Errorf("%s must not be empty", EnvCertIDPrefix)
	}
	if strings.Contains(prefix, "-") {
		return fmt.Errorf("%s must not contain '-'", EnvCertIDPrefix)
	}
	if c.MaxIdentifierAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvCertMaxIDAttempts)
	}
	if c.IssueConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvCertIssueConcurrency)
	}
	if c.AwardPoints < 0 {
		return fmt.Errorf("%s must not be negative", EnvCertAwardPoints)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:innointern.db?cache=shared"
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
