// Package fulfillment turns a completed drop into an order and tracks each
// item until it is picked up or sent back.
package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	CreateOrder(ctx context.Context, o Order, items []Item) (Order, bool, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, pickupPointID string, limit int) ([]Order, error)
	ListItems(ctx context.Context, orderID string) ([]Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, p Patch) (bool, error)
	MarkArrived(ctx context.Context, id string, from Status, at time.Time) (bool, error)
	MarkPickedUp(ctx context.Context, itemID string, at time.Time) (bool, error)
	MarkReturned(ctx context.Context, itemID, reason string, at time.Time) (bool, error)
	CompleteIfDone(ctx context.Context, orderID string, at time.Time) (bool, error)
}

type Profiles interface {
	Lookup(ctx context.Context, ids []string) (map[string]Profile, error)
}

// Notifier is fire-and-forget; *notify.Dispatcher implements it.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, relatedID string)
}

type Orchestrator struct {
	Store    Store
	Profiles Profiles
	Notifier Notifier
	Events   *events.Emitter
	Now      func() time.Time
	Log      *zap.Logger
}

func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, o.Log)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func orderNumber(at time.Time) string {
	return "GB-" + at.Format("20060102") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateFromDrop opens the order for a completed drop. A drop gets at most one
// order; calling again returns the existing one with created=false.
func (o *Orchestrator) CreateFromDrop(ctx context.Context, in NewOrder) (Order, bool, error) {
	if in.DropID == "" || len(in.Items) == 0 {
		return Order{}, false, apperr.Validation(apperr.CodeValidation, "an order needs a drop and at least one captured booking")
	}
	now := o.now()
	ord := Order{
		ID:             uuid.NewString(),
		OrderNumber:    orderNumber(now),
		DropID:         in.DropID,
		SupplierID:     in.SupplierID,
		SupplierListID: in.SupplierListID,
		PickupPointID:  in.PickupPointID,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	items := make([]Item, 0, len(in.Items))
	for _, ni := range in.Items {
		ord.TotalValue += ni.Price
		items = append(items, Item{
			ID:           uuid.NewString(),
			OrderID:      ord.ID,
			BookingID:    ni.BookingID,
			ConsumerID:   ni.ConsumerID,
			ProductID:    ni.ProductID,
			ProductName:  ni.ProductName,
			Size:         ni.Size,
			Color:        ni.Color,
			Price:        ni.Price,
			PickupStatus: PickupPending,
		})
	}

	saved, created, err := o.Store.CreateOrder(ctx, ord, items)
	if err != nil {
		return Order{}, false, apperr.Wrap(err, "create order")
	}
	if !created {
		return saved, false, nil
	}
	saved.Items = items
	o.log(ctx).Info("order created",
		zap.String("order_id", saved.ID), zap.String("order_number", saved.OrderNumber),
		zap.String("drop_id", saved.DropID), zap.Int("items", len(items)), zap.Int64("total_value", saved.TotalValue))
	o.emit(ctx, events.EventOrderCreated, saved)
	return saved, true, nil
}

func (o *Orchestrator) Get(ctx context.Context, id string) (Order, error) {
	ord, err := o.Store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, apperr.Wrap(err, "load order")
	}
	items, err := o.Store.ListItems(ctx, id)
	if err != nil {
		return Order{}, apperr.Wrap(err, "load order items")
	}
	ord.Items = items
	return ord, nil
}

func (o *Orchestrator) List(ctx context.Context, pickupPointID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := o.Store.ListOrders(ctx, pickupPointID, limit)
	return out, apperr.Wrap(err, "list orders")
}

func (o *Orchestrator) Confirm(ctx context.Context, id string) (Order, error) {
	return o.transition(ctx, id, StatusConfirmed, Patch{})
}

func (o *Orchestrator) Ship(ctx context.Context, id string) (Order, error) {
	now := o.now()
	return o.transition(ctx, id, StatusInTransit, Patch{ShippedAt: &now})
}

func (o *Orchestrator) Cancel(ctx context.Context, id string) (Order, error) {
	return o.transition(ctx, id, StatusCancelled, Patch{})
}

func (o *Orchestrator) transition(ctx context.Context, id string, to Status, p Patch) (Order, error) {
	ord, err := o.Store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, apperr.Wrap(err, "load order")
	}
	if !CanTransition(ord.Status, to) {
		return Order{}, apperr.InvalidTransition(string(ord.Status), string(to))
	}
	ok, err := o.Store.UpdateStatus(ctx, id, ord.Status, to, p)
	if err != nil {
		return Order{}, apperr.Wrap(err, "update order status")
	}
	if !ok {
		return Order{}, apperr.InvalidTransition(string(ord.Status), string(to))
	}
	ord.Status = to
	if p.ShippedAt != nil {
		ord.ShippedAt = p.ShippedAt
	}
	o.log(ctx).Info("order transition", zap.String("order_id", id), zap.String("to", string(to)))
	o.emit(ctx, events.EventOrderStatusChanged, ord)
	return ord, nil
}

// ConfirmArrived moves the order through arrived to ready_for_pickup, readies
// its items and sends one pickup notification per consumer.
func (o *Orchestrator) ConfirmArrived(ctx context.Context, id string) (Order, error) {
	ord, err := o.Store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, apperr.Wrap(err, "load order")
	}
	if !CanTransition(ord.Status, StatusArrived) {
		return Order{}, apperr.InvalidTransition(string(ord.Status), string(StatusArrived))
	}
	now := o.now()
	ok, err := o.Store.MarkArrived(ctx, id, ord.Status, now)
	if err != nil {
		return Order{}, apperr.Wrap(err, "mark order arrived")
	}
	if !ok {
		return Order{}, apperr.InvalidTransition(string(ord.Status), string(StatusArrived))
	}
	ord.ArrivedAt = &now
	ord.Status = StatusArrived
	o.emit(ctx, events.EventOrderStatusChanged, ord)
	ord.Status = StatusReadyForPickup
	o.emit(ctx, events.EventOrderStatusChanged, ord)

	items, err := o.Store.ListItems(ctx, id)
	if err != nil {
		return Order{}, apperr.Wrap(err, "load order items")
	}
	ord.Items = items

	seen := map[string]bool{}
	for _, it := range items {
		if it.ReturnedToSender || seen[it.ConsumerID] {
			continue
		}
		seen[it.ConsumerID] = true
		o.notify(ctx, it.ConsumerID, "Ready for pickup",
			fmt.Sprintf("Your order %s has arrived and is ready for pickup.", ord.OrderNumber), ord.ID)
	}
	o.log(ctx).Info("order arrived", zap.String("order_id", id), zap.Int("consumers_notified", len(seen)))

	if done := o.completeIfDone(ctx, ord.ID); done != nil {
		return *done, nil
	}
	return ord, nil
}

func (o *Orchestrator) MarkPickedUp(ctx context.Context, itemID string) (Item, error) {
	it, err := o.Store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, apperr.Wrap(err, "load order item")
	}
	if it.Terminal() || it.PickupStatus != PickupReady {
		return Item{}, apperr.InvalidTransition(itemState(it), string(PickupPickedUp))
	}
	now := o.now()
	ok, err := o.Store.MarkPickedUp(ctx, itemID, now)
	if err != nil {
		return Item{}, apperr.Wrap(err, "mark item picked up")
	}
	if !ok {
		return Item{}, apperr.InvalidTransition(itemState(it), string(PickupPickedUp))
	}
	it.PickupStatus = PickupPickedUp
	it.PickedUpAt = &now
	o.log(ctx).Info("item picked up", zap.String("item_id", itemID), zap.String("order_id", it.OrderID))
	o.completeIfDone(ctx, it.OrderID)
	return it, nil
}

// MarkReturned records that the consumer never collected the item.
func (o *Orchestrator) MarkReturned(ctx context.Context, itemID, reason string) (Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Item{}, apperr.Validation(apperr.CodeValidation, "a return reason is required")
	}
	it, err := o.Store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, apperr.Wrap(err, "load order item")
	}
	if it.Terminal() {
		return Item{}, apperr.InvalidTransition(itemState(it), "returned_to_sender")
	}
	ord, err := o.Store.GetOrder(ctx, it.OrderID)
	if err != nil {
		return Item{}, apperr.Wrap(err, "load order")
	}
	if ord.Status.Terminal() {
		return Item{}, apperr.InvalidTransition("order "+string(ord.Status), "returned_to_sender")
	}
	now := o.now()
	ok, err := o.Store.MarkReturned(ctx, itemID, reason, now)
	if err != nil {
		return Item{}, apperr.Wrap(err, "mark item returned")
	}
	if !ok {
		return Item{}, apperr.InvalidTransition(itemState(it), "returned_to_sender")
	}
	it.ReturnedToSender = true
	it.ReturnReason = reason
	it.ReturnedAt = &now

	o.notify(ctx, it.ConsumerID, "Item returned to sender",
		fmt.Sprintf("%s from order %s was returned to the supplier: %s", it.ProductName, ord.OrderNumber, reason), ord.ID)
	o.log(ctx).Info("item returned", zap.String("item_id", itemID), zap.String("order_id", it.OrderID))
	o.completeIfDone(ctx, it.OrderID)
	return it, nil
}

// completeIfDone runs after every item-level change. A failure here is logged;
// the next item change or arrival retries it.
func (o *Orchestrator) completeIfDone(ctx context.Context, orderID string) *Order {
	ok, err := o.Store.CompleteIfDone(ctx, orderID, o.now())
	if err != nil {
		o.log(ctx).Warn("order completion check", zap.String("order_id", orderID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	ord, err := o.Store.GetOrder(ctx, orderID)
	if err != nil {
		o.log(ctx).Warn("reload completed order", zap.String("order_id", orderID), zap.Error(err))
		return nil
	}
	o.log(ctx).Info("order completed", zap.String("order_id", orderID))
	o.emit(ctx, events.EventOrderStatusChanged, ord)
	return &ord
}

// ListItems returns the order's items labelled for pickup staff. Profile
// lookup is best-effort; unknown consumers get a placeholder label.
func (o *Orchestrator) ListItems(ctx context.Context, orderID string) ([]StaffItem, error) {
	items, err := o.Store.ListItems(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(err, "load order items")
	}
	ids := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		if !seen[it.ConsumerID] {
			seen[it.ConsumerID] = true
			ids = append(ids, it.ConsumerID)
		}
	}
	sort.Strings(ids)

	var profiles map[string]Profile
	if o.Profiles != nil {
		profiles, err = o.Profiles.Lookup(ctx, ids)
		if err != nil {
			o.log(ctx).Warn("profile lookup failed, using placeholders", zap.String("order_id", orderID), zap.Error(err))
			profiles = nil
		}
	}

	out := make([]StaffItem, 0, len(items))
	for _, it := range items {
		si := StaffItem{Item: it, CustomerLabel: placeholderLabel(it.ConsumerID)}
		if p, ok := profiles[it.ConsumerID]; ok && strings.TrimSpace(p.DisplayName) != "" {
			si.CustomerLabel = p.DisplayName
			si.CustomerPhone = p.Phone
		}
		out = append(out, si)
	}
	return out, nil
}

func (o *Orchestrator) notify(ctx context.Context, userID, title, message, relatedID string) {
	if o.Notifier != nil {
		o.Notifier.Notify(ctx, userID, title, message, relatedID)
	}
}

func placeholderLabel(consumerID string) string {
	short := consumerID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Customer " + short
}

func itemState(it Item) string {
	if it.ReturnedToSender {
		return "returned_to_sender"
	}
	return string(it.PickupStatus)
}

func (o *Orchestrator) emit(ctx context.Context, eventType string, ord Order) {
	err := o.Events.Emit(ctx, events.TopicOrders, eventType, ord.ID, events.OrderPayload{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		DropID:      ord.DropID,
		Status:      string(ord.Status),
	})
	if err != nil {
		o.log(ctx).Warn("emit order event", zap.String("order_id", ord.ID), zap.Error(err))
	}
}
