package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker holds a claim key while the claim it guards is in flight.
const pendingMarker = "pending"

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("idempotent request still in flight")

// ClaimKeys stores idempotency keys for claims.
type ClaimKeys struct {
	R   redis.Cmdable
	TTL time.Duration
}

func (k *ClaimKeys) ttl() time.Duration {
	if k.TTL <= 0 {
		return TTLIdempotency
	}
	return k.TTL
}

// Reserve takes the key. When the key already resolved to a booking, the
// booking id is returned with reserved=false.
func (k *ClaimKeys) Reserve(ctx context.Context, key string) (bookingID string, reserved bool, err error) {
	rk := fmt.Sprintf(KeyIdemClaim, key)
	ok, err := k.R.SetNX(ctx, rk, pendingMarker, k.ttl()).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := k.R.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = k.R.SetNX(ctx, rk, pendingMarker, k.ttl()).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInFlight
	}
	if err != nil {
		return "", false, err
	}
	if v == pendingMarker {
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Resolve binds the key to the booking it produced.
func (k *ClaimKeys) Resolve(ctx context.Context, key, bookingID string) error {
	return k.R.Set(ctx, fmt.Sprintf(KeyIdemClaim, key), bookingID, k.ttl()).Err()
}

// Forget drops the key so a failed claim can be retried with it.
func (k *ClaimKeys) Forget(ctx context.Context, key string) error {
	return k.R.Del(ctx, fmt.Sprintf(KeyIdemClaim, key)).Err()
}

// Dedup marks an event id as processed. It returns false when it was seen before.
func Dedup(ctx context.Context, rdb redis.Cmdable, service, id string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
}

// ForgetDedup clears a dedup mark so a failed event is processed again on redelivery.
func ForgetDedup(ctx context.Context, rdb redis.Cmdable, service, id string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, id)).Err()
}
