package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-groupbuy-drops/internal/app"
	"github.com/ariefcatur/go-groupbuy-drops/internal/config"
	"github.com/ariefcatur/go-groupbuy-drops/internal/drops"
	"github.com/ariefcatur/go-groupbuy-drops/internal/events"
	kafkax "github.com/ariefcatur/go-groupbuy-drops/internal/kafka"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.Env).With(zap.String("service", cfg.ServiceName+"-worker"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatal("db schema", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer, started on its own context so it outlives the consumers
	// and flushes what they emitted during shutdown.
	pctx, pcancel := context.WithCancel(context.Background())
	defer pcancel()
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(pctx)

	svc := app.Build(cfg, db, rdb, prod, app.Payments(cfg, log), log)

	g, gctx := errgroup.WithContext(ctx)

	ticker := &drops.Ticker{Service: svc.Drops, Interval: cfg.DropTickInterval, Log: log}
	g.Go(func() error {
		log.Info("drop ticker started", zap.Duration("interval", cfg.DropTickInterval))
		return ticker.Run(gctx)
	})

	settle := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup+"-settlement", events.TopicDropLifecycle, cfg.WorkerConcurrency, log)
	g.Go(func() error {
		log.Info("settlement consumer started", zap.String("topic", events.TopicDropLifecycle))
		return settle.Start(gctx, svc.Settlement.HandleDropEvent)
	})

	stock := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup+"-catalog", events.TopicStockChanged, cfg.WorkerConcurrency, log)
	g.Go(func() error {
		log.Info("stock consumer started", zap.String("topic", events.TopicStockChanged))
		return stock.Start(gctx, svc.Catalog.HandleStockChanged)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker exit", zap.Error(err))
	}
	log.Info("shutting down worker")
	prod.Close()
	pcancel()
	prod.WaitClosed()
}
