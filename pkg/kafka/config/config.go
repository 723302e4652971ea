package kafka_config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all Kafka configuration
type Config struct {
	Enabled bool     `mapstructure:"KAFKA_ENABLED"`
	Brokers []string `mapstructure:"KAFKA_BROKERS"`

	BookingEventsTopic string `mapstructure:"KAFKA_BOOKING_EVENTS_TOPIC"`
	PaymentsTopic      string `mapstructure:"KAFKA_PAYMENTS_TOPIC"`
	PaymentsDLQTopic   string `mapstructure:"KAFKA_PAYMENTS_DLQ_TOPIC"`
	ConsumerGroupID    string `mapstructure:"KAFKA_CONSUMER_GROUP_ID"`

	ProducerMaxAttempts  int           `mapstructure:"KAFKA_PRODUCER_MAX_ATTEMPTS"`
	ProducerBatchTimeout time.Duration `mapstructure:"KAFKA_PRODUCER_BATCH_TIMEOUT"`
	ProducerRequireAcks  int           `mapstructure:"KAFKA_PRODUCER_REQUIRE_ACKS"` // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string        `mapstructure:"KAFKA_PRODUCER_COMPRESSION"`  // "none", "gzip", "snappy", "lz4", "zstd"

	ConsumerStartOffset       int64         `mapstructure:"KAFKA_CONSUMER_START_OFFSET"` // -1 = newest, -2 = oldest
	ConsumerMinBytes          int           `mapstructure:"KAFKA_CONSUMER_MIN_BYTES"`
	ConsumerMaxBytes          int           `mapstructure:"KAFKA_CONSUMER_MAX_BYTES"`
	ConsumerMaxWait           time.Duration `mapstructure:"KAFKA_CONSUMER_MAX_WAIT"`
	ConsumerHeartbeatInterval time.Duration `mapstructure:"KAFKA_CONSUMER_HEARTBEAT_INTERVAL"`
	ConsumerSessionTimeout    time.Duration `mapstructure:"KAFKA_CONSUMER_SESSION_TIMEOUT"`
	ConsumerRebalanceTimeout  time.Duration `mapstructure:"KAFKA_CONSUMER_REBALANCE_TIMEOUT"`
	ConsumerMaxRetries        int           `mapstructure:"KAFKA_CONSUMER_MAX_RETRIES"`
	ConsumerRetryBackoff      time.Duration `mapstructure:"KAFKA_CONSUMER_RETRY_BACKOFF"`
}

// Load reads the Kafka section from v, which already carries env bindings.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for _, key := range boundEnvKeys {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal kafka config: %w", err)
	}

	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	cfg.Brokers = brokers

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvKafkaEnabled, DefaultKafkaEnabled)
	v.SetDefault(EnvKafkaBrokers, DefaultKafkaBrokers)
	v.SetDefault(EnvKafkaBookingEventsTopic, DefaultBookingEventsTopic)
	v.SetDefault(EnvKafkaPaymentsTopic, DefaultPaymentsTopic)
	v.SetDefault(EnvKafkaPaymentsDLQTopic, DefaultPaymentsDLQTopic)
	v.SetDefault(EnvKafkaConsumerGroupID, DefaultConsumerGroupID)
	v.SetDefault(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts)
	v.SetDefault(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout)
	v.SetDefault(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks)
	v.SetDefault(EnvKafkaProducerCompression, DefaultProducerCompression)
	v.SetDefault(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)
	v.SetDefault(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes)
	v.SetDefault(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes)
	v.SetDefault(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait)
	v.SetDefault(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval)
	v.SetDefault(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout)
	v.SetDefault(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout)
	v.SetDefault(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries)
	v.SetDefault(EnvKafkaConsumerRetryBackoff, DefaultConsumerRetryBackoff)
}

// Validate validates the Kafka configuration. A disabled config is always valid.
func (cfg *Config) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	if cfg.BookingEventsTopic == "" {
		errors = append(errors, "BookingEventsTopic cannot be empty")
	}
	if cfg.PaymentsTopic == "" {
		errors = append(errors, "PaymentsTopic cannot be empty")
	}
	if cfg.ConsumerGroupID == "" {
		errors = append(errors, "ConsumerGroupID cannot be empty")
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}

	validCompressions := map[string]bool{
		"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
	}
	if !validCompressions[cfg.ProducerCompression] {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	validAcks := map[int]bool{-1: true, 0: true, 1: true}
	if !validAcks[cfg.ProducerRequireAcks] {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != -1 && cfg.ConsumerStartOffset != -2 {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMinBytes <= 0 || cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		errors = append(errors, fmt.Sprintf("ConsumerMinBytes (%d) and ConsumerMaxBytes (%d) must be positive and ordered", cfg.ConsumerMinBytes, cfg.ConsumerMaxBytes))
	}
	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// LogConfiguration logs the Kafka configuration
func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded successfully",
		"enabled", cfg.Enabled,
		"brokers", cfg.Brokers,
		"booking_events_topic", cfg.BookingEventsTopic,
		"payments_topic", cfg.PaymentsTopic,
		"payments_dlq_topic", cfg.PaymentsDLQTopic,
		"consumer_group_id", cfg.ConsumerGroupID,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"consumer_retry_backoff", cfg.ConsumerRetryBackoff,
	)
}
