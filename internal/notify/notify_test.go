package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/pashagolub/pgxmock/v4"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	rows []Notification
	err  error
}

func (m *memStore) Insert(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, n)
	return nil
}

func (m *memStore) List(_ context.Context, userID string, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.rows {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *memStore) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].IsRead = true
		}
	}
	return nil
}

type countSink struct{ n int }

func (c *countSink) Publish(string, []byte, []byte, ...kafkago.Header) { c.n++ }

func TestNotify_StoresAndEmits(t *testing.T) {
	store := &memStore{}
	sink := &countSink{}
	d := &Dispatcher{Store: store, Events: &events.Emitter{Sink: sink}}
	ctx := context.Background()

	d.Notify(ctx, "c1", "Ready for pickup", "Your items arrived", "order-1")
	d.Notify(ctx, "c1", "Ready for pickup", "Your items arrived", "order-2")
	d.Notify(ctx, "", "ignored", "", "")

	n, err := d.UnreadCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, sink.n)

	list, err := d.List(ctx, "c1", 0)
	require.NoError(t, err)
	require.NoError(t, d.MarkRead(ctx, "c1", list[0].ID))
	n, _ = d.UnreadCount(ctx, "c1")
	assert.Equal(t, 1, n)
}

func TestNotify_StoreFailureIsSwallowed(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	sink := &countSink{}
	d := &Dispatcher{Store: store, Events: &events.Emitter{Sink: sink}}

	assert.NotPanics(t, func() { d.Notify(context.Background(), "c1", "t", "m", "r") })
	assert.Zero(t, sink.n)

	var nilDispatcher *Dispatcher
	assert.NotPanics(t, func() { nilDispatcher.Notify(context.Background(), "c1", "t", "m", "r") })
}

func TestRepo_UnreadCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := (&Repo{DB: mock}).UnreadCount(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
