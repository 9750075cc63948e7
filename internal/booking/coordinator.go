// Package booking claims units of stock against active drops and drives the
// authorize, capture and release payment protocol for them.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/discount"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/payment"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Store interface {
	Claim(ctx context.Context, in ClaimInput) (DropValue, int, error)
	Get(ctx context.Context, id string) (Booking, error)
	ListByDrop(ctx context.Context, dropID string, status PaymentStatus) ([]Booking, error)
	MarkCaptured(ctx context.Context, id string, finalPrice int64, at time.Time) (bool, error)
	Release(ctx context.Context, b Booking, to PaymentStatus, at time.Time) (int, bool, error)
}

// Drops is the part of the drop service the coordinator reads.
type Drops interface {
	View(ctx context.Context, id string) (drops.View, error)
}

type Catalog interface {
	Unit(ctx context.Context, supplierListID, key string) (catalog.SellableUnit, error)
}

type Coordinator struct {
	Store    Store
	Drops    Drops
	Catalog  Catalog
	Payments payment.Provider
	Keys     *redisx.ClaimKeys
	Events   *events.Emitter
	Retry    Policy
	Timeout  time.Duration
	Currency string
	Now      func() time.Time
	Log      *zap.Logger
}

func (c *Coordinator) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, c.Log)
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Claim reserves one unit for the consumer and opens a payment authorization
// for the discounted price. With an idempotency key, a repeated request
// returns the booking of the first one.
func (c *Coordinator) Claim(ctx context.Context, req ClaimRequest) (Claimed, error) {
	if req.ConsumerID == "" || req.DropID == "" || req.UnitKey == "" {
		return Claimed{}, apperr.Validation(apperr.CodeValidation, "consumer, drop and product are required")
	}

	key := idemKey(req)
	if key != "" && c.Keys != nil {
		id, reserved, err := c.Keys.Reserve(ctx, key)
		if errors.Is(err, redisx.ErrInFlight) {
			return Claimed{}, apperr.Transient(err)
		}
		if err != nil {
			return Claimed{}, apperr.Wrap(err, "reserve idempotency key")
		}
		if !reserved {
			b, err := c.Store.Get(ctx, id)
			if err != nil {
				return Claimed{}, apperr.Wrap(err, "load replayed booking")
			}
			if b.ConsumerID != req.ConsumerID {
				return Claimed{}, apperr.Validation(apperr.CodeValidation, "idempotency key belongs to another consumer")
			}
			return Claimed{Booking: b, Replayed: true}, nil
		}
	}

	res, err := c.claim(ctx, req)
	if key != "" && c.Keys != nil {
		if err != nil {
			if ferr := c.Keys.Forget(ctx, key); ferr != nil {
				c.log(ctx).Warn("forget idempotency key", zap.Error(ferr))
			}
		} else if rerr := c.Keys.Resolve(ctx, key, res.Booking.ID); rerr != nil {
			c.log(ctx).Warn("resolve idempotency key", zap.String("booking_id", res.Booking.ID), zap.Error(rerr))
		}
	}
	return res, err
}

// idemKey scopes a client idempotency key to its consumer.
func idemKey(req ClaimRequest) string {
	if req.IdempotencyKey == "" {
		return ""
	}
	return req.ConsumerID + ":" + req.IdempotencyKey
}

func (c *Coordinator) claim(ctx context.Context, req ClaimRequest) (Claimed, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	v, err := c.Drops.View(ctx, req.DropID)
	if err != nil {
		return Claimed{}, apperr.Wrap(err, "load drop")
	}
	if v.Drop.Status != drops.StatusActive {
		return Claimed{}, apperr.ErrDropNotActive
	}
	unit, err := c.Catalog.Unit(ctx, v.Drop.SupplierListID, req.UnitKey)
	if err != nil {
		return Claimed{}, apperr.Wrap(err, "load product")
	}
	target, err := catalog.TargetFor(unit, req.Selection)
	if err != nil {
		return Claimed{}, err
	}

	pct := v.Discount
	b := Booking{
		ID:                      uuid.NewString(),
		DropID:                  v.Drop.ID,
		ProductID:               target.ProductID,
		VariantID:               target.VariantID,
		ConsumerID:              req.ConsumerID,
		PickupPointID:           v.Drop.PickupPointID,
		OriginalPrice:           unit.PriceCents,
		DiscountAtAuthorization: pct,
		AuthorizedAmount:        discount.Price(unit.PriceCents, pct),
		PaymentStatus:           PaymentAuthorized,
		IdempotencyKey:          req.IdempotencyKey,
		CreatedAt:               c.now(),
	}

	if b.AuthorizedAmount <= 0 {
		return Claimed{}, apperr.Validation(apperr.CodeValidation, "product has no chargeable price")
	}

	auth, err := c.Payments.Authorize(ctx, payment.AuthorizeRequest{
		AmountCents:    b.AuthorizedAmount,
		Currency:       c.Currency,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: "authorize-" + b.ID,
		Metadata:       map[string]string{"booking_id": b.ID, "drop_id": b.DropID},
	})
	if err != nil {
		return Claimed{}, apperr.Payment(err)
	}
	b.PaymentToken = auth.Token

	in := ClaimInput{
		Booking:        b,
		Target:         target,
		SupplierListID: v.Drop.SupplierListID,
		Discount:       v.List.Range.At,
	}
	var dv DropValue
	var stock int
	err = c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		dv, stock, err = c.Store.Claim(ctx, in)
		return err
	})
	if err != nil {
		// nothing was applied; the hold must not outlive the failed claim
		if rerr := c.Payments.Release(context.WithoutCancel(ctx), auth.Token); rerr != nil {
			c.log(ctx).Error("release authorization after failed claim",
				zap.String("booking_id", b.ID), zap.Error(rerr))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Claimed{}, apperr.Transient(err)
		}
		return Claimed{}, apperr.Wrap(err, "claim")
	}

	c.log(ctx).Info("claim accepted",
		zap.String("booking_id", b.ID), zap.String("drop_id", b.DropID),
		zap.String("product_id", b.ProductID), zap.String("variant_id", b.VariantID),
		zap.Int64("authorized_amount", b.AuthorizedAmount), zap.Int64("drop_value", dv.CurrentValue))

	c.emit(ctx, events.TopicBookings, events.EventBookingAuthorized, b.ID, bookingPayload(b))
	c.emit(ctx, events.TopicStockChanged, events.EventStockChanged, in.SupplierListID, events.StockChangedPayload{
		SupplierListID: in.SupplierListID,
		ProductID:      b.ProductID,
		VariantID:      b.VariantID,
		Stock:          stock,
	})
	c.emit(ctx, events.TopicDropValue, events.EventDropValueChanged, b.DropID, events.DropValueChangedPayload{
		DropID:          b.DropID,
		CurrentValue:    dv.CurrentValue,
		CurrentDiscount: dv.CurrentDiscount.InexactFloat64(),
	})
	return Claimed{Booking: b, DropValue: dv, Stock: stock}, nil
}

func (c *Coordinator) Get(ctx context.Context, id string) (Booking, error) {
	b, err := c.Store.Get(ctx, id)
	return b, apperr.Wrap(err, "load booking")
}

// FinalPrice is the captured price for a booking on a drop that closed at
// completionDiscount. It never exceeds the authorized amount.
func FinalPrice(b Booking, completionDiscount decimal.Decimal) int64 {
	p := discount.Price(b.OriginalPrice, completionDiscount)
	if p > b.AuthorizedAmount {
		return b.AuthorizedAmount
	}
	return p
}

// Capture charges the final price once the drop has completed. Capturing a
// captured booking returns it unchanged.
func (c *Coordinator) Capture(ctx context.Context, id string) (Booking, error) {
	b, err := c.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.PaymentStatus == PaymentCaptured {
		return b, nil
	}
	if b.PaymentStatus != PaymentAuthorized {
		return Booking{}, apperr.InvalidTransition(string(b.PaymentStatus), string(PaymentCaptured))
	}
	v, err := c.Drops.View(ctx, b.DropID)
	if err != nil {
		return Booking{}, apperr.Wrap(err, "load drop")
	}
	if v.Drop.Status != drops.StatusCompleted {
		return Booking{}, apperr.InvalidTransition("drop "+string(v.Drop.Status), string(PaymentCaptured))
	}

	final := FinalPrice(b, v.Discount)
	if err := c.settle(ctx, b.PaymentToken, final); err != nil {
		return Booking{}, apperr.Payment(err)
	}
	now := c.now()
	var ok bool
	err = c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		ok, err = c.Store.MarkCaptured(ctx, b.ID, final, now)
		return err
	})
	if err != nil {
		return Booking{}, apperr.Wrap(err, "mark captured")
	}
	if !ok {
		cur, err := c.Get(ctx, id)
		if err != nil {
			return Booking{}, err
		}
		if cur.PaymentStatus == PaymentCaptured {
			return cur, nil
		}
		return Booking{}, apperr.InvalidTransition(string(cur.PaymentStatus), string(PaymentCaptured))
	}
	b.PaymentStatus = PaymentCaptured
	b.FinalPrice = &final
	b.CapturedAt = &now

	c.log(ctx).Info("booking captured", zap.String("booking_id", b.ID), zap.Int64("final_price", final))
	c.emit(ctx, events.TopicBookings, events.EventBookingCaptured, b.ID, bookingPayload(b))
	return b, nil
}

// Release voids or refunds the payment and puts the unit back in stock. It is
// refused while the drop is still open because committed value may not shrink
// there. Releasing a settled booking returns it unchanged.
func (c *Coordinator) Release(ctx context.Context, id string) (Booking, error) {
	b, err := c.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.PaymentStatus.Settled() {
		return b, nil
	}
	v, err := c.Drops.View(ctx, b.DropID)
	if err != nil {
		return Booking{}, apperr.Wrap(err, "load drop")
	}
	if v.Drop.Status == drops.StatusActive || v.Drop.Status == drops.StatusInactive {
		return Booking{}, apperr.InvalidTransition("drop "+string(v.Drop.Status), "released")
	}

	to := PaymentCancelled
	if b.PaymentStatus == PaymentCaptured {
		to = PaymentRefunded
		err = c.Payments.Refund(ctx, b.PaymentToken)
	} else {
		err = c.Payments.Release(ctx, b.PaymentToken)
	}
	if err != nil {
		return Booking{}, apperr.Payment(err)
	}

	now := c.now()
	var stock int
	var ok bool
	err = c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		stock, ok, err = c.Store.Release(ctx, b, to, now)
		return err
	})
	if err != nil {
		return Booking{}, apperr.Wrap(err, "release booking")
	}
	if !ok {
		return c.Get(ctx, id)
	}
	b.PaymentStatus = to
	b.ReleasedAt = &now

	c.log(ctx).Info("booking released", zap.String("booking_id", b.ID), zap.String("status", string(to)))
	c.emit(ctx, events.TopicBookings, events.EventBookingReleased, b.ID, bookingPayload(b))
	c.emit(ctx, events.TopicStockChanged, events.EventStockChanged, v.Drop.SupplierListID, events.StockChangedPayload{
		SupplierListID: v.Drop.SupplierListID,
		ProductID:      b.ProductID,
		VariantID:      b.VariantID,
		Stock:          stock,
	})
	return b, nil
}

// Authorized lists the bookings of a drop still waiting for capture or release.
func (c *Coordinator) Authorized(ctx context.Context, dropID string) ([]Booking, error) {
	out, err := c.Store.ListByDrop(ctx, dropID, PaymentAuthorized)
	return out, apperr.Wrap(err, "list authorized bookings")
}

// Captured lists the captured bookings of a drop.
// settle collects final on the hold. Nothing is owed when the discount takes
// the price to zero, so the hold is dropped instead.
func (c *Coordinator) settle(ctx context.Context, token string, final int64) error {
	if final > 0 {
		return c.Payments.Capture(ctx, token, final)
	}
	return c.Payments.Release(ctx, token)
}

func (c *Coordinator) Captured(ctx context.Context, dropID string) ([]Booking, error) {
	out, err := c.Store.ListByDrop(ctx, dropID, PaymentCaptured)
	return out, apperr.Wrap(err, "list captured bookings")
}

func (c *Coordinator) emit(ctx context.Context, topic, eventType, key string, payload any) {
	if err := c.Events.Emit(ctx, topic, eventType, key, payload); err != nil {
		c.log(ctx).Warn("emit booking event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func bookingPayload(b Booking) events.BookingPayload {
	p := events.BookingPayload{
		BookingID:        b.ID,
		DropID:           b.DropID,
		ConsumerID:       b.ConsumerID,
		PaymentStatus:    string(b.PaymentStatus),
		AuthorizedAmount: b.AuthorizedAmount,
	}
	if b.FinalPrice != nil {
		p.FinalPrice = *b.FinalPrice
	}
	return p
}
