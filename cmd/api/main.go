package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/app"
	"github.com/ariefcatur/go-groupbuy-drops/internal/config"
	"github.com/ariefcatur/go-groupbuy-drops/internal/httpx"
	kafkax "github.com/ariefcatur/go-groupbuy-drops/internal/kafka"
	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"github.com/ariefcatur/go-groupbuy-drops/internal/postgres"
	"github.com/ariefcatur/go-groupbuy-drops/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.Env).With(zap.String("service", cfg.ServiceName))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	svc := app.Build(cfg, db, rdb, prod, app.Payments(cfg, log), log)

	router := httpx.NewRouter(log)
	h := &httpx.Handler{
		Catalog:       svc.Catalog,
		Drops:         svc.Drops,
		Bookings:      svc.Bookings,
		Orders:        svc.Orders,
		Notifications: svc.Notify,
		Cache:         &redisx.JSONCache{R: rdb},
		Log:           log,
	}
	h.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox, flush and close the writer
	cancel()          // stop the producer loop
	prod.WaitClosed() // drain
}
