package kafka_config

const (
	EnvKafkaEnabled = "KAFKA_ENABLED"
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvKafkaBookingEventsTopic = "KAFKA_BOOKING_EVENTS_TOPIC"
	EnvKafkaPaymentsTopic      = "KAFKA_PAYMENTS_TOPIC"
	EnvKafkaPaymentsDLQTopic   = "KAFKA_PAYMENTS_DLQ_TOPIC"
	EnvKafkaConsumerGroupID    = "KAFKA_CONSUMER_GROUP_ID"

	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"

	EnvKafkaConsumerStartOffset       = "KAFKA_CONSUMER_START_OFFSET"
	EnvKafkaConsumerMinBytes          = "KAFKA_CONSUMER_MIN_BYTES"
	EnvKafkaConsumerMaxBytes          = "KAFKA_CONSUMER_MAX_BYTES"
	EnvKafkaConsumerMaxWait           = "KAFKA_CONSUMER_MAX_WAIT"
	EnvKafkaConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	EnvKafkaConsumerSessionTimeout    = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvKafkaConsumerRebalanceTimeout  = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	EnvKafkaConsumerMaxRetries        = "KAFKA_CONSUMER_MAX_RETRIES"
	EnvKafkaConsumerRetryBackoff      = "KAFKA_CONSUMER_RETRY_BACKOFF"
)

var boundEnvKeys = []string{
	EnvKafkaEnabled, EnvKafkaBrokers,
	EnvKafkaBookingEventsTopic, EnvKafkaPaymentsTopic, EnvKafkaPaymentsDLQTopic, EnvKafkaConsumerGroupID,
	EnvKafkaProducerMaxAttempts, EnvKafkaProducerBatchTimeout, EnvKafkaProducerRequireAcks, EnvKafkaProducerCompression,
	EnvKafkaConsumerStartOffset, EnvKafkaConsumerMinBytes, EnvKafkaConsumerMaxBytes, EnvKafkaConsumerMaxWait,
	EnvKafkaConsumerHeartbeatInterval, EnvKafkaConsumerSessionTimeout, EnvKafkaConsumerRebalanceTimeout,
	EnvKafkaConsumerMaxRetries, EnvKafkaConsumerRetryBackoff,
}
