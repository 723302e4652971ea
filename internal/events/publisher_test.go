package events

import (
	"context"
	"errors"
	"testing"

	"clinicq/pkg/kafka"
	"clinicq/pkg/logger"
	"clinicq/pkg/middleware"
)

type mockProducer struct {
	published  []kafka.Message
	publishErr error
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	return m.publishErr
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := &mockProducer{}
	publisher := &KafkaPublisher{producer: producer, log: logger.Discard()}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	publisher.Publish(ctx, BookingConfirmed, "b1", map[string]string{"id": "b1"})

	if len(producer.published) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.published))
	}
	msg := producer.published[0]
	if msg.Key != "b1" {
		t.Errorf("expected key b1, got %q", msg.Key)
	}
	if msg.GetEventType() != BookingConfirmed {
		t.Errorf("expected event type %s, got %q", BookingConfirmed, msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-1" {
		t.Errorf("expected correlation id req-1, got %q", msg.GetCorrelationID())
	}
	if msg.GetEventID() == "" {
		t.Error("expected an event id")
	}

	var payload map[string]string
	if err := msg.DecodeValue(&payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["id"] != "b1" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestKafkaPublisher_FailuresAreSwallowed(t *testing.T) {
	producer := &mockProducer{publishErr: errors.New("broker down")}
	publisher := &KafkaPublisher{producer: producer, log: logger.Discard()}

	publisher.Publish(context.Background(), SlotLocked, "s1", map[string]string{"slotId": "s1"})
	if len(producer.published) != 1 {
		t.Fatalf("expected a publish attempt, got %d", len(producer.published))
	}

	// unencodable payloads never reach the producer
	publisher.Publish(context.Background(), SlotLocked, "s1", make(chan int))
	if len(producer.published) != 1 {
		t.Errorf("expected unencodable payload to be dropped, got %d messages", len(producer.published))
	}
}
