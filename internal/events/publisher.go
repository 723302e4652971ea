// Package events publishes booking lifecycle events and consumes payment
// results that drive booking confirmation.
package events

import (
	"context"

	"clinicq/pkg/kafka"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
)

const (
	SlotLocked               = "slot.locked"
	SlotLockReleased         = "slot.lock_released"
	BookingConfirmed         = "booking.confirmed"
	BookingCancelled         = "booking.cancelled"
	BookingIntegrityConflict = "booking.integrity_conflict"
	VisitCheckedIn           = "visit.checked_in"

	SchemaVersion = "1"
	Source        = "clinicq"
)

// Publisher emits domain events. Publishing is best-effort: failures are
// logged by the implementation and never fail the calling operation.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer producer
	log      *logger.Logger
}

func NewKafkaPublisher(p *kafka.Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, log: log.Component("events")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) {
	builder := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source)
	if requestID := middleware.RequestID(ctx); requestID != "" {
		builder = builder.WithCorrelationID(requestID)
	}
	if err := builder.Err(); err != nil {
		p.log.Error("Failed to encode event", "event_type", eventType, "key", key, "error", err)
		return
	}

	if err := p.producer.Publish(ctx, builder.Build()); err != nil {
		p.log.Error("Failed to publish event", "event_type", eventType, "key", key, "error", err)
	}
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) {}
