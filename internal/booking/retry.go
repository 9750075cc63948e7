package booking

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classifier reports whether an error is worth retrying.
type Classifier func(error) bool

// Policy retries transient failures with linear backoff: attempt n waits n*Backoff.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	Transient  Classifier
}

func DefaultPolicy(backoff time.Duration) Policy {
	return Policy{MaxRetries: 2, Backoff: backoff, Transient: TransientPG}
}

// TransientPG matches the write conflicts the store reports under contention:
// insufficient_privilege (a row-security race on insert), serialization
// failure and deadlock.
func TransientPG(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", "40001", "40P01":
			return true
		}
	}
	return false
}

// Do runs op until it succeeds, fails permanently or runs out of retries.
// Exhausted retries come back as a transient error wrapping the last failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Transient == nil || !p.Transient(err) {
			return err
		}
		if attempt >= p.MaxRetries {
			return apperr.Transient(err)
		}
		t := time.NewTimer(time.Duration(attempt+1) * p.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return apperr.Transient(err)
		case <-t.C:
		}
	}
}
