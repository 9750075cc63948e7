// Package payment holds the two-phase payment port used by bookings: an
// authorization hold at claim time, then capture or release once the drop
// settles.
package payment

import (
	"context"
	"errors"
)

type AuthorizeRequest struct {
	AmountCents    int64
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Metadata       map[string]string
}

type Authorization struct {
	Token       string
	AmountCents int64
}

// Provider is implemented by the Stripe adapter and the in-memory sandbox.
// Capture may take less than the authorized amount, never more. Release voids
// an uncaptured hold and Refund returns captured funds.
type Provider interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Capture(ctx context.Context, token string, amountCents int64) error
	Release(ctx context.Context, token string) error
	Refund(ctx context.Context, token string) error
}

var (
	ErrUnknownToken   = errors.New("payment: unknown authorization")
	ErrOverCapture    = errors.New("payment: capture exceeds authorization")
	ErrAlreadySettled = errors.New("payment: authorization already settled")
	ErrInvalidAmount  = errors.New("payment: amount must be positive")
	ErrNotCaptured    = errors.New("payment: nothing captured to refund")
)
