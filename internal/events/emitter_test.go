package events

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafkago.Header
}

func (c *captureSink) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	c.topic, c.key, c.value, c.headers = topic, key, value, headers
}

func TestEmitter_WrapsPayload(t *testing.T) {
	sink := &captureSink{}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	em := &Emitter{Sink: sink, Producer: "drops-api", Now: func() time.Time { return at }}

	err := em.Emit(context.Background(), TopicStockChanged, EventStockChanged, "p1",
		StockChangedPayload{SupplierListID: "l1", ProductID: "p1", Stock: 4})
	require.NoError(t, err)

	assert.Equal(t, TopicStockChanged, sink.topic)
	assert.Equal(t, []byte("p1"), sink.key)
	require.Len(t, sink.headers, 2)
	assert.Equal(t, "x-event-type", sink.headers[0].Key)

	env, err := Decode(sink.value)
	require.NoError(t, err)
	assert.Equal(t, EventStockChanged, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, at, env.OccurredAt)
	assert.NotEmpty(t, env.EventID)

	p, err := UnwrapPayload[StockChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)
}

func TestEmitter_NilIsNoop(t *testing.T) {
	var em *Emitter
	assert.NoError(t, em.Emit(context.Background(), TopicOrders, EventOrderCreated, "o1", OrderPayload{}))
}
