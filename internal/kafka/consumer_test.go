package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func testConsumer(r reader) *Consumer {
	return &Consumer{r: r, workers: 1, backoff: time.Millisecond, maxBackoff: 4 * time.Millisecond, log: zap.NewNop()}
}

func TestConsumer_FailingMessageBlocksLaterOffsets(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Partition: 0, Offset: 0}, {Partition: 0, Offset: 1}}}
	c := testConsumer(r)

	var mu sync.Mutex
	attempts := map[int64]int{}
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[m.Offset]++
		if m.Offset == 0 && attempts[0] < 6 {
			return errors.New("settlement unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{0, 1}, r.commits())
	mu.Lock()
	assert.Equal(t, 6, attempts[0])
	assert.Equal(t, 1, attempts[1])
	mu.Unlock()
}

func TestConsumer_ShutdownLeavesFailedMessageUncommitted(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{{Partition: 0, Offset: 0}, {Partition: 0, Offset: 1}}}
	c := testConsumer(r)

	calls := make(chan int64, 64)
	h := func(_ context.Context, m kafka.Message) error {
		calls <- m.Offset
		if m.Offset == 0 {
			return errors.New("settlement unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(0), <-calls)
	}
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.commits())
	close(calls)
	for off := range calls {
		assert.Equal(t, int64(0), off)
	}
}
