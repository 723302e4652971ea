package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"clinicq/pkg/kafka"
)

// Metrics counts Kafka operations for one producer or consumer.
type Metrics struct {
	published       atomic.Int64
	publishedFailed atomic.Int64
	publishNanos    atomic.Int64

	consumed       atomic.Int64
	consumedFailed atomic.Int64
	consumeNanos   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to serialize.
type MetricsSnapshot struct {
	MessagesPublished       int64  `json:"messagesPublished"`
	MessagesPublishedFailed int64  `json:"messagesPublishedFailed"`
	AvgPublishDuration      string `json:"avgPublishDuration"`
	MessagesConsumed        int64  `json:"messagesConsumed"`
	MessagesConsumedFailed  int64  `json:"messagesConsumedFailed"`
	AvgConsumeDuration      string `json:"avgConsumeDuration"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Reset() {
	m.published.Store(0)
	m.publishedFailed.Store(0)
	m.publishNanos.Store(0)
	m.consumed.Store(0)
	m.consumedFailed.Store(0)
	m.consumeNanos.Store(0)
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published := m.published.Load()
	publishedFailed := m.publishedFailed.Load()
	consumed := m.consumed.Load()
	consumedFailed := m.consumedFailed.Load()

	return MetricsSnapshot{
		MessagesPublished:       published,
		MessagesPublishedFailed: publishedFailed,
		AvgPublishDuration:      average(m.publishNanos.Load(), published+publishedFailed).String(),
		MessagesConsumed:        consumed,
		MessagesConsumedFailed:  consumedFailed,
		AvgConsumeDuration:      average(m.consumeNanos.Load(), consumed+consumedFailed).String(),
	}
}

// MetricsProducerMiddleware tracks producer metrics
func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishNanos.Add(int64(time.Since(start)))

		if err != nil {
			m.publishedFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

// MetricsConsumerMiddleware tracks consumer metrics
func MetricsConsumerMiddleware(m *Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeNanos.Add(int64(time.Since(start)))

		if err != nil {
			m.consumedFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}
