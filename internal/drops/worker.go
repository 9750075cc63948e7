package drops

import (
	"context"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/logging"
	"go.uber.org/zap"
)

// Ticker drives the timer transitions of Service.Tick on a fixed interval.
type Ticker struct {
	Service  *Service
	Interval time.Duration
	Log      *zap.Logger
}

func (t *Ticker) Run(ctx context.Context) error {
	log := logging.OrNop(t.Log)
	interval := t.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		if n, err := t.Service.Tick(ctx); err != nil {
			log.Warn("drop tick failed", zap.Error(err))
		} else if n > 0 {
			log.Info("drop tick", zap.Int("transitioned", n))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
		}
	}
}
