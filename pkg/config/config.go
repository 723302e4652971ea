package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clinicq/pkg/client"
	"clinicq/pkg/locale"
	"clinicq/pkg/logger"

	"github.com/spf13/viper"
)

type Config struct {
	MongoURI          string        `mapstructure:"MONGO_URI"`
	MongoDatabaseName string        `mapstructure:"MONGO_DATABASE_NAME"`
	MongoConnTimeout  time.Duration `mapstructure:"MONGO_CONN_TIMEOUT"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`

	Port      string `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	MaxRequestSize int           `mapstructure:"MAX_REQUEST_SIZE"`

	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LockTTL           time.Duration `mapstructure:"LOCK_TTL"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize    int           `mapstructure:"SWEEP_BATCH_SIZE"`
	BusinessDayOffset string        `mapstructure:"BUSINESS_DAY_OFFSET"`
	PhoneRegion       string        `mapstructure:"PHONE_REGION"`

	WindowDefaultDays int `mapstructure:"WINDOW_DEFAULT_DAYS"`
	WindowMaxDays     int `mapstructure:"WINDOW_MAX_DAYS"`
	WindowScanCapDays int `mapstructure:"WINDOW_SCAN_CAP_DAYS"`

	TokenBackend     string        `mapstructure:"TOKEN_BACKEND"`
	TokenKeyTTL      time.Duration `mapstructure:"TOKEN_KEY_TTL"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	PostgresURL      string        `mapstructure:"POSTGRES_URL"`
	StoreConnTimeout time.Duration `mapstructure:"STORE_CONN_TIMEOUT"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	PaymentWebhookSecret string `mapstructure:"PAYMENT_WEBHOOK_SECRET"`

	Log      *logger.Logger   `mapstructure:"-"`
	Client   *client.Client   `mapstructure:"-"`
	Calendar *locale.Calendar `mapstructure:"-"`
	Now      func() time.Time `mapstructure:"-"`
}

// Load reads configuration from the environment and an optional config file,
// validates it and logs the effective values. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	cfg, err := FromViper(NewViper(), serviceName)
	if err != nil {
		logger.New(logger.Config{Service: serviceName}).Fatal("Failed to load configuration", "error", err)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// NewViper returns a viper instance with defaults and env bindings. The config
// file is CONFIG_FILE when set, otherwise an optional .env in the working dir.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		_ = v.BindEnv(key)
	}

	if file := os.Getenv(EnvConfigFile); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigFile(".env")
	}
	// a missing file is fine, env and defaults still apply
	_ = v.ReadInConfig()

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvMongoURI, DefaultMongoURI)
	v.SetDefault(EnvMongoDatabaseName, DefaultMongoDatabaseName)
	v.SetDefault(EnvMongoConnTimeout, DefaultMongoConnTimeout)
	v.SetDefault(EnvStorageBackend, DefaultStorageBackend)

	v.SetDefault(EnvPort, DefaultPort)
	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)

	v.SetDefault(EnvRateLimitRequests, DefaultRateLimitRequests)
	v.SetDefault(EnvRateLimitWindow, DefaultRateLimitWindow)
	v.SetDefault(EnvRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(EnvIdempotencyTTL, DefaultIdempotencyTTL)
	v.SetDefault(EnvMaxRequestSize, DefaultMaxRequestSize)

	v.SetDefault(EnvReadTimeout, DefaultReadTimeout)
	v.SetDefault(EnvWriteTimeout, DefaultWriteTimeout)
	v.SetDefault(EnvIdleTimeout, DefaultIdleTimeout)
	v.SetDefault(EnvShutdownTimeout, DefaultShutdownTimeout)

	v.SetDefault(EnvLockTTL, DefaultLockTTL)
	v.SetDefault(EnvSweepInterval, DefaultSweepInterval)
	v.SetDefault(EnvSweepBatchSize, DefaultSweepBatchSize)
	v.SetDefault(EnvBusinessDayOffset, DefaultBusinessDayOffset)
	v.SetDefault(EnvPhoneRegion, DefaultPhoneRegion)

	v.SetDefault(EnvWindowDefaultDays, DefaultWindowDefaultDays)
	v.SetDefault(EnvWindowMaxDays, DefaultWindowMaxDays)
	v.SetDefault(EnvWindowScanCapDays, DefaultWindowScanCapDays)

	v.SetDefault(EnvTokenBackend, DefaultTokenBackend)
	v.SetDefault(EnvTokenKeyTTL, DefaultTokenKeyTTL)
	v.SetDefault(EnvStoreConnTimeout, DefaultStoreConnTimeout)

	v.SetDefault(EnvJWTIssuer, DefaultJWTIssuer)
}

// FromViper builds a Config without validating it.
func FromViper(v *viper.Viper, serviceName string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	cfg.TokenBackend = strings.ToLower(cfg.TokenBackend)
	cfg.PhoneRegion = strings.ToUpper(cfg.PhoneRegion)

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()
	cfg.Now = time.Now

	// Validate reports a bad offset; keep the default calendar meanwhile.
	if cal, err := locale.NewCalendar(cfg.BusinessDayOffset); err == nil {
		cfg.Calendar = cal
	} else {
		cfg.Calendar = locale.MustCalendar(DefaultBusinessDayOffset)
	}

	return cfg, nil
}

// Clock returns the current instant. Tests replace Now to move time.
func (cfg *Config) Clock() time.Time {
	if cfg.Now != nil {
		return cfg.Now()
	}
	return time.Now()
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.StoreConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, cfg.StoreConnTimeout)
}

// UsesMongo reports whether any enabled component needs a Mongo connection.
func (cfg *Config) UsesMongo() bool {
	return cfg.StorageBackend == StorageMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageBackend {
	case StorageMongo, StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [mongo memory], got: %s", cfg.StorageBackend))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURL(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}

	switch cfg.TokenBackend {
	case TokenBackendMongo:
	case TokenBackendRedis:
		if !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
			errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://' when TokenBackend is redis")
		}
		if cfg.TokenKeyTTL < 24*time.Hour {
			errors = append(errors, fmt.Sprintf("TokenKeyTTL must be at least 24h so a counter outlives its day, got: %s", cfg.TokenKeyTTL))
		}
	case TokenBackendPostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, "PostgresURL must start with 'postgres://' or 'postgresql://' when TokenBackend is postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("TokenBackend must be one of [mongo redis postgres], got: %s", cfg.TokenBackend))
	}

	if _, err := locale.NewCalendar(cfg.BusinessDayOffset); err != nil {
		errors = append(errors, fmt.Sprintf("BusinessDayOffset is invalid: %v", err))
	}
	if !regexp.MustCompile(`^[A-Z]{2}$`).MatchString(cfg.PhoneRegion) {
		errors = append(errors, fmt.Sprintf("PhoneRegion must be an ISO 3166-1 alpha-2 code, got: %s", cfg.PhoneRegion))
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"LockTTL", cfg.LockTTL},
		{"SweepInterval", cfg.SweepInterval},
		{"StoreConnTimeout", cfg.StoreConnTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}

	if cfg.WindowDefaultDays <= 0 {
		errors = append(errors, fmt.Sprintf("WindowDefaultDays must be positive, got: %d", cfg.WindowDefaultDays))
	}
	if cfg.WindowMaxDays < cfg.WindowDefaultDays {
		errors = append(errors, fmt.Sprintf("WindowMaxDays (%d) must be >= WindowDefaultDays (%d)", cfg.WindowMaxDays, cfg.WindowDefaultDays))
	}
	if cfg.WindowScanCapDays < cfg.WindowMaxDays {
		errors = append(errors, fmt.Sprintf("WindowScanCapDays (%d) must be >= WindowMaxDays (%d)", cfg.WindowScanCapDays, cfg.WindowMaxDays))
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		errors = append(errors, "JWTSecret must be at least 32 characters")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"storage_backend", cfg.StorageBackend,
		"mongo_uri", redactURL(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_ttl", cfg.LockTTL,
		"sweep_interval", cfg.SweepInterval,
		"business_day_offset", cfg.BusinessDayOffset,
		"phone_region", cfg.PhoneRegion,
		"window_default_days", cfg.WindowDefaultDays,
		"window_max_days", cfg.WindowMaxDays,
		"window_scan_cap_days", cfg.WindowScanCapDays,
		"token_backend", cfg.TokenBackend,
		"redis_url", redactURL(cfg.RedisURL),
		"postgres_url", redactURL(cfg.PostgresURL),
		"jwt_secret_set", cfg.JWTSecret != "",
		"payment_webhook_enabled", cfg.PaymentWebhookSecret != "",
	)
	if cfg.JWTSecret == "" {
		cfg.Log.Warn("JWT_SECRET is not set, admin and reception routes will reject every request")
	}
}

var credentialRegex = regexp.MustCompile(`^([a-z+]+://)[^@/]*@`)

func redactURL(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
