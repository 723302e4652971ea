package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clinicq/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "clinic.booking-events", logger.Discard())

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	msg := NewMessage().WithKey("booking-1").WithValue(map[string]int{"n": 1}).WithEventType("booking.confirmed").Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("writer got %d messages, want 1", len(w.messages))
	}
	if string(w.messages[0].Key) != "booking-1" {
		t.Errorf("key = %q", w.messages[0].Key)
	}
	if header(w.messages[0], HeaderEventType) != "booking.confirmed" {
		t.Errorf("event type header missing")
	}
	if len(seen) != 1 || seen[0] != "clinic.booking-events" {
		t.Errorf("middleware saw topics %v", seen)
	}
}

func TestProducerRejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", logger.Discard())

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("missing key error = %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("missing value error = %v", err)
	}
}

func TestProducerFailureGoesToDLQ(t *testing.T) {
	cause := errors.New("broker unavailable")
	w := &fakeWriter{err: cause}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "events", logger.Discard())

	msg := NewMessage().WithKey("k").WithRawValue([]byte("{}")).Build()
	err := p.Publish(context.Background(), msg)
	if !errors.Is(err, cause) {
		t.Fatalf("Publish() error = %v, want %v", err, cause)
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("dlq got %d messages, want 1", len(dlq.messages))
	}
	if header(dlq.messages[0], HeaderOriginalTopic) != "events" {
		t.Errorf("original topic header = %q", header(dlq.messages[0], HeaderOriginalTopic))
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("caller's message headers were mutated")
	}
}

func TestProducerClosed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "t", logger.Discard())
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	msg := NewMessage().WithKey("k").WithRawValue([]byte("{}")).Build()
	if err := p.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("Publish() after close = %v", err)
	}
}
