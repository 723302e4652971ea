package config

const (
	EnvConfigFile = "CONFIG_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvStorageBackend = "STORAGE_BACKEND"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockTTL           = "LOCK_TTL"
	EnvSweepInterval     = "SWEEP_INTERVAL"
	EnvSweepBatchSize    = "SWEEP_BATCH_SIZE"
	EnvBusinessDayOffset = "BUSINESS_DAY_OFFSET"
	EnvPhoneRegion       = "PHONE_REGION"

	EnvWindowDefaultDays = "WINDOW_DEFAULT_DAYS"
	EnvWindowMaxDays     = "WINDOW_MAX_DAYS"
	EnvWindowScanCapDays = "WINDOW_SCAN_CAP_DAYS"

	EnvTokenBackend     = "TOKEN_BACKEND"
	EnvTokenKeyTTL      = "TOKEN_KEY_TTL"
	EnvRedisURL         = "REDIS_URL"
	EnvPostgresURL      = "POSTGRES_URL"
	EnvStoreConnTimeout = "STORE_CONN_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"
	EnvJWTIssuer = "JWT_ISSUER"

	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"
)

var boundEnvKeys = []string{
	EnvMongoURI, EnvMongoDatabaseName, EnvMongoConnTimeout,
	EnvStorageBackend,
	EnvPort, EnvLogLevel, EnvLogFormat,
	EnvRateLimitRequests, EnvRateLimitWindow,
	EnvRequestTimeout, EnvIdempotencyTTL, EnvMaxRequestSize,
	EnvReadTimeout, EnvWriteTimeout, EnvIdleTimeout, EnvShutdownTimeout,
	EnvLockTTL, EnvSweepInterval, EnvSweepBatchSize, EnvBusinessDayOffset, EnvPhoneRegion,
	EnvWindowDefaultDays, EnvWindowMaxDays, EnvWindowScanCapDays,
	EnvTokenBackend, EnvTokenKeyTTL, EnvRedisURL, EnvPostgresURL, EnvStoreConnTimeout,
	EnvJWTSecret, EnvJWTIssuer,
	EnvPaymentWebhookSecret,
}
