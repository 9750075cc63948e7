package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Sink accepts encoded messages; *kafka.Producer implements it.
type Sink interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Emitter wraps payloads in a v1 Envelope and hands them to a Sink.
// A nil Emitter or one without a Sink drops events silently.
type Emitter struct {
	Sink     Sink
	Producer string
	Now      func() time.Time
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, correlationID string, payload any) error {
	if e == nil || e.Sink == nil {
		return nil
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      e.Producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       p,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	e.Sink.Publish(topic, PartitionKey(correlationID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	return nil
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(b, &env)
	return env, err
}
