// Package app wires the services shared by the api and worker binaries.
package app

import (
	"github.com/ariefcatur/go-groupbuy-drops/internal/booking"
	"github.com/ariefcatur/go-groupbuy-drops/internal/catalog"
	"github.com/ariefcatur/go-groupbuy-drops/internal/config"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	"github.com/ariefcatur/go-groupbuy-drops/internal/fulfillment"
	"github.com/ariefcatur/go-groupbuy-drops/internal/notify"
	"github.com/ariefcatur/go-groupbuy-drops/internal/payment"
	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/ariefcatur/go-groupbuy-drops/internal/settlement"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Services struct {
	Catalog    *catalog.Service
	Drops      *drops.Service
	Payments   payment.Provider
	Bookings   *booking.Coordinator
	Notify     *notify.Dispatcher
	Orders     *fulfillment.Orchestrator
	Settlement *settlement.Service
}

// Payments picks Stripe when a secret key is configured. The sandbox keeps
// holds in memory, so it only settles bookings claimed by the same process.
func Payments(cfg config.Config, log *zap.Logger) payment.Provider {
	if cfg.StripeSecretKey != "" {
		return payment.NewStripe(cfg.StripeSecretKey, cfg.Currency, nil)
	}
	log.Warn("STRIPE_SECRET_KEY not set, using in-memory payment sandbox")
	return payment.NewSandbox()
}

func Build(cfg config.Config, db postgres.DB, rdb redis.Cmdable, sink events.Sink, pay payment.Provider, log *zap.Logger) *Services {
	em := &events.Emitter{Sink: sink, Producer: cfg.ServiceName}

	cat := &catalog.Service{
		Store: &catalog.Repo{DB: db},
		Cache: &redisx.JSONCache{R: rdb},
		TTL:   cfg.CatalogCacheTTL,
		Log:   log,
	}
	dr := &drops.Service{
		Store:    &drops.Repo{DB: db},
		Events:   em,
		Duration: cfg.DropDuration,
		Log:      log,
	}
	bk := &booking.Coordinator{
		Store:    &booking.Repo{DB: db},
		Drops:    dr,
		Catalog:  cat,
		Payments: pay,
		Keys:     &redisx.ClaimKeys{R: rdb, TTL: redisx.TTLIdempotency},
		Events:   em,
		Retry:    booking.DefaultPolicy(cfg.ClaimRetryBackoff),
		Timeout:  cfg.ClaimTimeout,
		Currency: cfg.Currency,
		Log:      log,
	}
	nt := &notify.Dispatcher{Store: &notify.Repo{DB: db}, Events: em, Log: log}
	ord := &fulfillment.Orchestrator{
		Store:    &fulfillment.Repo{DB: db},
		Profiles: &fulfillment.ProfileRepo{DB: db},
		Notifier: nt,
		Events:   em,
		Log:      log,
	}
	st := &settlement.Service{
		Bookings:    bk,
		Orders:      ord,
		Drops:       dr,
		Catalog:     cat,
		Redis:       rdb,
		Concurrency: cfg.WorkerConcurrency,
		Log:         log,
	}
	return &Services{
		Catalog:    cat,
		Drops:      dr,
		Payments:   pay,
		Bookings:   bk,
		Notify:     nt,
		Orders:     ord,
		Settlement: st,
	}
}
