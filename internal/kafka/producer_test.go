package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProducer_CloseIsIdempotentAndDropsLatePublishes(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, nil)

	p.Publish("drop.lifecycle", []byte("d1"), []byte("{}"))
	assert.Len(t, p.inbox, 1)

	p.Close()
	p.Close()
	assert.NotPanics(t, func() {
		p.Publish("drop.lifecycle", []byte("d1"), []byte("{}"))
	})
	assert.True(t, p.closed)
}
