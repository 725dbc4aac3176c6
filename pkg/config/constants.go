package config

const (
	EnvPrefix = "INNOINTERN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "INNOINTERN_APP_ENV"
	EnvPort      = "INNOINTERN_APP_PORT"
	EnvPublicURL = "INNOINTERN_PUBLIC_URL"

	EnvDBDSN  = "INNOINTERN_DB_DSN"
	EnvDBHost = "INNOINTERN_DB_HOST"
	EnvDBUser = "INNOINTERN_DB_USER"
	EnvDBName = "INNOINTERN_DB_NAME"

	EnvRedisURL = "INNOINTERN_REDIS_URL"

	EnvJWTSecret  = "INNOINTERN_JWT_SECRET"
	EnvJWTIssuer  = "INNOINTERN_JWT_ISSUER"
	EnvJWTExpMins = "INNOINTERN_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite    = "INNOINTERN_USE_SQLITE"
	EnvGCPProjectID = "INNOINTERN_GCP_PROJECT_ID"

	EnvPubSubCertificateTopic = "INNOINTERN_PUBSUB_CERTIFICATE_TOPIC"
	EnvPubSubCertificateSub   = "INNOINTERN_PUBSUB_CERTIFICATE_SUBSCRIPTION"

	EnvCertIDPrefix         = "INNOINTERN_CERT_ID_PREFIX"
	EnvCertAwardPoints      = "INNOINTERN_CERT_AWARD_POINTS"
	EnvCertMaxIDAttempts    = "INNOINTERN_CERT_MAX_ID_ATTEMPTS"
	EnvCertIssueConcurrency = "INNOINTERN_CERT_ISSUE_CONCURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
