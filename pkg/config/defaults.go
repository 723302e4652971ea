package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "clinicq"
	DefaultMongoConnTimeout  = 10 * time.Second

	StorageMongo          = "mongo"
	StorageMemory         = "memory"
	DefaultStorageBackend = StorageMongo

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockTTL           = 10 * time.Minute
	DefaultSweepInterval     = 30 * time.Second
	DefaultSweepBatchSize    = 500
	DefaultBusinessDayOffset = "+05:30"
	DefaultPhoneRegion       = "IN"

	DefaultWindowDefaultDays = 7
	DefaultWindowMaxDays     = 31
	DefaultWindowScanCapDays = 60

	TokenBackendMongo       = "mongo"
	TokenBackendRedis       = "redis"
	TokenBackendPostgres    = "postgres"
	DefaultTokenBackend     = TokenBackendMongo
	DefaultTokenKeyTTL      = 48 * time.Hour
	DefaultStoreConnTimeout = 10 * time.Second

	DefaultJWTIssuer = "clinicq"

	DefaultPaginationLimit = 100
)
