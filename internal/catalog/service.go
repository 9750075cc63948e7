package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Store interface {
	ListRows(ctx context.Context, supplierListID string) ([]ProductRow, error)
	ListVariants(ctx context.Context, productIDs []string) ([]Variant, error)
	InsertRows(ctx context.Context, rows []ProductRow) error
}

type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service serves aggregated catalogs. The cache is optional.
type Service struct {
	Store Store
	Cache Cache
	TTL   time.Duration
	Log   *zap.Logger
}

func (s *Service) Units(ctx context.Context, supplierListID string) ([]SellableUnit, error) {
	key := fmt.Sprintf(redisx.KeyCatalog, supplierListID)
	if s.Cache != nil {
		var units []SellableUnit
		hit, err := s.Cache.Get(ctx, key, &units)
		if err != nil {
			logging.FromContext(ctx, s.Log).Warn("catalog cache read", zap.Error(err))
		}
		if hit {
			return units, nil
		}
	}
	units, err := s.Fresh(ctx, supplierListID)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, units, s.TTL); err != nil {
			logging.FromContext(ctx, s.Log).Warn("catalog cache write", zap.Error(err))
		}
	}
	return units, nil
}

// Fresh aggregates straight from the store, bypassing the cache.
func (s *Service) Fresh(ctx context.Context, supplierListID string) ([]SellableUnit, error) {
	rows, err := s.Store.ListRows(ctx, supplierListID)
	if err != nil {
		return nil, apperr.Wrap(err, "load products")
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	variants, err := s.Store.ListVariants(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "load variants")
	}
	res := Aggregate(rows, variants)
	if len(res.Orphans) > 0 {
		logging.FromContext(ctx, s.Log).Warn("orphan variants excluded",
			zap.String("supplier_list_id", supplierListID), zap.Int("count", len(res.Orphans)))
	}
	return res.Units, nil
}

// Unit returns the sellable unit with the given key, read fresh.
func (s *Service) Unit(ctx context.Context, supplierListID, key string) (SellableUnit, error) {
	units, err := s.Fresh(ctx, supplierListID)
	if err != nil {
		return SellableUnit{}, err
	}
	for _, u := range units {
		if u.Key == key {
			return u, nil
		}
	}
	return SellableUnit{}, apperr.NotFound("product " + key)
}

func (s *Service) Invalidate(ctx context.Context, supplierListID string) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Delete(ctx, fmt.Sprintf(redisx.KeyCatalog, supplierListID))
}

// HandleStockChanged drops the cached catalog of the affected list. Delivery is
// at-least-once and invalidation is idempotent, so duplicates are harmless.
func (s *Service) HandleStockChanged(ctx context.Context, m kafkago.Message) error {
	env, err := events.Decode(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != events.EventStockChanged {
		return nil
	}
	p, err := events.UnwrapPayload[events.StockChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	return s.Invalidate(ctx, p.SupplierListID)
}
