// Package settlement reacts to drops closing: a completed drop has its
// bookings captured and becomes an order, an expired or cancelled drop has
// its bookings released.
package settlement

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-groupbuy-drops/internal/booking"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/fulfillment"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dedupService = "settlement"

type Bookings interface {
	Authorized(ctx context.Context, dropID string) ([]booking.Booking, error)
	Captured(ctx context.Context, dropID string) ([]booking.Booking, error)
	Capture(ctx context.Context, id string) (booking.Booking, error)
	Release(ctx context.Context, id string) (booking.Booking, error)
}

type Orders interface {
	CreateFromDrop(ctx context.Context, in fulfillment.NewOrder) (fulfillment.Order, bool, error)
}

type Drops interface {
	View(ctx context.Context, id string) (drops.View, error)
}

type Catalog interface {
	Units(ctx context.Context, supplierListID string) ([]catalog.SellableUnit, error)
}

type Service struct {
	Bookings    Bookings
	Orders      Orders
	Drops       Drops
	Catalog     Catalog
	Redis       redis.Cmdable
	Concurrency int
	Log         *zap.Logger
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.Log)
}

// HandleDropEvent is installed as the drop.lifecycle consumer handler.
// Delivery is at-least-once: event ids are deduplicated in Redis and every
// step below is idempotent, so a redelivered event changes nothing.
func (s *Service) HandleDropEvent(ctx context.Context, m kafkago.Message) error {
	env, err := events.Decode(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != events.EventDropStatusChanged {
		return nil
	}
	p, err := events.UnwrapPayload[events.DropStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	to := drops.Status(p.To)
	if to != drops.StatusCompleted && to != drops.StatusExpired && to != drops.StatusCancelled {
		return nil
	}

	if s.Redis != nil {
		fresh, err := redisx.Dedup(ctx, s.Redis, dedupService, env.EventID)
		if err != nil {
			s.log(ctx).Warn("dedup check failed, processing anyway", zap.String("event_id", env.EventID), zap.Error(err))
		} else if !fresh {
			return nil
		}
	}

	if to == drops.StatusCompleted {
		err = s.SettleCompleted(ctx, p.DropID)
	} else {
		err = s.ReleaseAll(ctx, p.DropID)
	}
	if err != nil && s.Redis != nil {
		if ferr := redisx.ForgetDedup(ctx, s.Redis, dedupService, env.EventID); ferr != nil {
			s.log(ctx).Warn("clear dedup mark", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
	}
	return err
}

func (s *Service) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	n := s.Concurrency
	if n <= 0 {
		n = 4
	}
	g.SetLimit(n)
	return g, gctx
}

// SettleCompleted captures every authorized booking of the drop and opens
// its order. A booking whose capture fails is released instead.
func (s *Service) SettleCompleted(ctx context.Context, dropID string) error {
	pending, err := s.Bookings.Authorized(ctx, dropID)
	if err != nil {
		return err
	}
	g, gctx := s.group(ctx)
	for _, b := range pending {
		g.Go(func() error {
			if _, err := s.Bookings.Capture(gctx, b.ID); err != nil {
				s.log(gctx).Warn("capture failed, releasing", zap.String("booking_id", b.ID), zap.Error(err))
				if _, rerr := s.Bookings.Release(gctx, b.ID); rerr != nil {
					return errors.Join(err, rerr)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	captured, err := s.Bookings.Captured(ctx, dropID)
	if err != nil {
		return err
	}
	if len(captured) == 0 {
		s.log(ctx).Info("completed drop has no captured bookings, no order", zap.String("drop_id", dropID))
		return nil
	}

	v, err := s.Drops.View(ctx, dropID)
	if err != nil {
		return err
	}
	labels := s.labels(ctx, v.Drop.SupplierListID)
	in := fulfillment.NewOrder{
		DropID:         dropID,
		SupplierID:     v.List.SupplierID,
		SupplierListID: v.Drop.SupplierListID,
		PickupPointID:  v.Drop.PickupPointID,
	}
	for _, b := range captured {
		l := labels.of(b)
		price := b.AuthorizedAmount
		if b.FinalPrice != nil {
			price = *b.FinalPrice
		}
		in.Items = append(in.Items, fulfillment.NewItem{
			BookingID:   b.ID,
			ConsumerID:  b.ConsumerID,
			ProductID:   b.ProductID,
			ProductName: l.name,
			Size:        l.size,
			Color:       l.color,
			Price:       price,
		})
	}
	ord, created, err := s.Orders.CreateFromDrop(ctx, in)
	if err != nil {
		return err
	}
	s.log(ctx).Info("drop settled",
		zap.String("drop_id", dropID), zap.String("order_id", ord.ID),
		zap.Bool("order_created", created), zap.Int("captured", len(captured)))
	return nil
}

// ReleaseAll releases every authorized booking of an expired or cancelled drop.
func (s *Service) ReleaseAll(ctx context.Context, dropID string) error {
	pending, err := s.Bookings.Authorized(ctx, dropID)
	if err != nil {
		return err
	}
	g, gctx := s.group(ctx)
	for _, b := range pending {
		g.Go(func() error {
			_, err := s.Bookings.Release(gctx, b.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log(ctx).Info("drop bookings released", zap.String("drop_id", dropID), zap.Int("released", len(pending)))
	return nil
}

type label struct{ name, size, color string }

type labelIndex struct {
	products map[string]string
	variants map[string]label
}

func (ix labelIndex) of(b booking.Booking) label {
	l := label{name: ix.products[b.ProductID]}
	if v, ok := ix.variants[b.VariantID]; ok {
		l.size, l.color = v.size, v.color
	}
	if l.name == "" {
		l.name = b.ProductID
	}
	return l
}

// labels reads product names for order items. A catalog failure leaves
// product ids in place of names rather than blocking settlement.
func (s *Service) labels(ctx context.Context, supplierListID string) labelIndex {
	ix := labelIndex{products: map[string]string{}, variants: map[string]label{}}
	if s.Catalog == nil {
		return ix
	}
	units, err := s.Catalog.Units(ctx, supplierListID)
	if err != nil {
		s.log(ctx).Warn("load catalog for order labels", zap.String("supplier_list_id", supplierListID), zap.Error(err))
		return ix
	}
	for _, u := range units {
		for _, pid := range u.ProductIDs {
			ix.products[pid] = u.Name
		}
		for _, v := range u.Variants {
			ix.variants[v.ID] = label{size: v.Size, color: v.Color}
		}
	}
	return ix
}
