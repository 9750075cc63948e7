package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-groupbuy-drops/internal/booking"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/fulfillment"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookings struct {
	mu         sync.Mutex
	rows       map[string]booking.Booking
	failCharge map[string]bool
	captures   int
	releases   int
}

func newFakeBookings(ids ...string) *fakeBookings {
	f := &fakeBookings{rows: map[string]booking.Booking{}, failCharge: map[string]bool{}}
	for _, id := range ids {
		f.rows[id] = booking.Booking{
			ID: id, DropID: "d1", ProductID: "p1", VariantID: "vL", ConsumerID: "c-" + id,
			OriginalPrice: 10000, AuthorizedAmount: 7000, PaymentStatus: booking.PaymentAuthorized,
		}
	}
	return f
}

func (f *fakeBookings) list(status booking.PaymentStatus) []booking.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []booking.Booking
	for _, b := range f.rows {
		if b.PaymentStatus == status {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeBookings) Authorized(_ context.Context, _ string) ([]booking.Booking, error) {
	return f.list(booking.PaymentAuthorized), nil
}

func (f *fakeBookings) Captured(_ context.Context, _ string) ([]booking.Booking, error) {
	return f.list(booking.PaymentCaptured), nil
}

func (f *fakeBookings) Capture(_ context.Context, id string) (booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCharge[id] {
		return booking.Booking{}, errors.New("card expired")
	}
	b := f.rows[id]
	final := int64(6000)
	b.PaymentStatus = booking.PaymentCaptured
	b.FinalPrice = &final
	f.rows[id] = b
	f.captures++
	return b, nil
}

func (f *fakeBookings) Release(_ context.Context, id string) (booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.rows[id]
	b.PaymentStatus = booking.PaymentCancelled
	f.rows[id] = b
	f.releases++
	return b, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	byDrop map[string]fulfillment.NewOrder
	calls  int
}

func (f *fakeOrders) CreateFromDrop(_ context.Context, in fulfillment.NewOrder) (fulfillment.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.byDrop[in.DropID]; ok {
		return fulfillment.Order{ID: "o-" + in.DropID, DropID: in.DropID}, false, nil
	}
	f.byDrop[in.DropID] = in
	return fulfillment.Order{ID: "o-" + in.DropID, DropID: in.DropID}, true, nil
}

type fakeDrops struct{}

func (fakeDrops) View(_ context.Context, id string) (drops.View, error) {
	return drops.View{
		Drop: drops.Drop{ID: id, SupplierListID: "l1", PickupPointID: "pp1", Status: drops.StatusCompleted},
		List: drops.SupplierList{ID: "l1", SupplierID: "s1"},
	}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Units(context.Context, string) ([]catalog.SellableUnit, error) {
	return []catalog.SellableUnit{{
		Key: "TEE", ProductIDs: []string{"p1"}, Name: "Tee",
		Variants: []catalog.Variant{{ID: "vL", ProductID: "p1", Size: "L"}},
	}}, nil
}

func dropEvent(t *testing.T, eventID, to string) kafkago.Message {
	t.Helper()
	p, err := json.Marshal(events.DropStatusChangedPayload{DropID: "d1", From: "active", To: to})
	require.NoError(t, err)
	b, err := json.Marshal(events.Envelope{EventID: eventID, EventType: events.EventDropStatusChanged, EventVersion: 1, Payload: p})
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func newService(t *testing.T, bk *fakeBookings) (*Service, *fakeOrders, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	orders := &fakeOrders{byDrop: map[string]fulfillment.NewOrder{}}
	return &Service{
		Bookings: bk,
		Orders:   orders,
		Drops:    fakeDrops{},
		Catalog:  fakeCatalog{},
		Redis:    redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}, orders, mr
}

func TestCompletedDropIsCapturedAndOrdered(t *testing.T) {
	bk := newFakeBookings("b1", "b2", "b3")
	s, orders, _ := newService(t, bk)

	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "completed")))
	assert.Equal(t, 3, bk.captures)
	require.Contains(t, orders.byDrop, "d1")
	ord := orders.byDrop["d1"]
	assert.Equal(t, "s1", ord.SupplierID)
	require.Len(t, ord.Items, 3)
	for _, it := range ord.Items {
		assert.Equal(t, "Tee", it.ProductName)
		assert.Equal(t, "L", it.Size)
		assert.Equal(t, int64(6000), it.Price)
	}

	// redelivery of the same event is skipped outright
	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "completed")))
	assert.Equal(t, 1, orders.calls)

	// a second event for the same drop finds nothing to capture and no new order
	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e2", "completed")))
	assert.Equal(t, 3, bk.captures)
	assert.Len(t, orders.byDrop, 1)
}

func TestFailedCaptureIsReleased(t *testing.T) {
	bk := newFakeBookings("b1", "b2")
	bk.failCharge["b2"] = true
	s, orders, _ := newService(t, bk)

	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "completed")))
	assert.Equal(t, 1, bk.captures)
	assert.Equal(t, 1, bk.releases)
	assert.Len(t, orders.byDrop["d1"].Items, 1)
}

func TestExpiredDropReleasesEverything(t *testing.T) {
	bk := newFakeBookings("b1", "b2")
	s, orders, _ := newService(t, bk)

	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "expired")))
	assert.Equal(t, 2, bk.releases)
	assert.Empty(t, bk.list(booking.PaymentAuthorized))
	assert.Empty(t, orders.byDrop)
}

func TestCompletedWithoutBookingsOpensNoOrder(t *testing.T) {
	bk := newFakeBookings()
	s, orders, _ := newService(t, bk)

	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "completed")))
	assert.Zero(t, orders.calls)
}

func TestIgnoresOtherTransitions(t *testing.T) {
	bk := newFakeBookings("b1")
	s, _, mr := newService(t, bk)

	require.NoError(t, s.HandleDropEvent(context.Background(), dropEvent(t, "e1", "inactive")))
	assert.Zero(t, bk.captures+bk.releases)
	assert.False(t, mr.Exists("dedup:settlement:e1"))

	require.Error(t, s.HandleDropEvent(context.Background(), kafkago.Message{Value: []byte("{")}))
}
