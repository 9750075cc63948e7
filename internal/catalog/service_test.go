package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows     []ProductRow
	variants []Variant
	reads    int
}

func (f *fakeStore) ListRows(_ context.Context, listID string) ([]ProductRow, error) {
	f.reads++
	var out []ProductRow
	for _, r := range f.rows {
		if r.SupplierListID == listID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListVariants(_ context.Context, ids []string) ([]Variant, error) {
	return f.variants, nil
}

func (f *fakeStore) InsertRows(_ context.Context, rows []ProductRow) error {
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeCache struct{ data map[string][]byte }

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, out any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	c.data[key] = b
	return err
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestService_UnitsCachesAndInvalidates(t *testing.T) {
	store := &fakeStore{rows: []ProductRow{{ID: "p1", SupplierListID: "l1", Name: "Bag", Stock: 2}}}
	svc := &Service{Store: store, Cache: newFakeCache(), TTL: time.Minute}
	ctx := context.Background()

	units, err := svc.Units(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, units, 1)
	_, err = svc.Units(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)

	env := events.Envelope{EventType: events.EventStockChanged}
	env.Payload, _ = json.Marshal(events.StockChangedPayload{SupplierListID: "l1", ProductID: "p1", Stock: 1})
	b, _ := json.Marshal(env)
	require.NoError(t, svc.HandleStockChanged(ctx, kafkago.Message{Value: b}))
	// duplicate delivery is a harmless second invalidation
	require.NoError(t, svc.HandleStockChanged(ctx, kafkago.Message{Value: b}))

	_, err = svc.Units(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.reads)
}

func TestService_UnitNotFound(t *testing.T) {
	svc := &Service{Store: &fakeStore{}}
	_, err := svc.Unit(context.Background(), "l1", "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
