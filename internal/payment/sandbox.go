package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type holdState int

const (
	holdAuthorized holdState = iota
	holdCaptured
	holdReleased
	holdRefunded
)

type hold struct {
	amount   int64
	captured int64
	state    holdState
}

// Sandbox is an in-memory Provider for local runs and tests. Authorizations
// with the same idempotency key return the same token.
type Sandbox struct {
	mu    sync.Mutex
	holds map[string]*hold
	keys  map[string]string

	// FailAuthorize, when set, is returned by the next Authorize call.
	FailAuthorize error
}

func NewSandbox() *Sandbox {
	return &Sandbox{holds: map[string]*hold{}, keys: map[string]string{}}
}

func (s *Sandbox) Authorize(_ context.Context, req AuthorizeRequest) (Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailAuthorize; err != nil {
		s.FailAuthorize = nil
		return Authorization{}, err
	}
	if req.AmountCents <= 0 {
		return Authorization{}, ErrInvalidAmount
	}
	if req.IdempotencyKey != "" {
		if tok, ok := s.keys[req.IdempotencyKey]; ok {
			return Authorization{Token: tok, AmountCents: s.holds[tok].amount}, nil
		}
	}
	tok := "sbx_" + uuid.NewString()
	s.holds[tok] = &hold{amount: req.AmountCents}
	if req.IdempotencyKey != "" {
		s.keys[req.IdempotencyKey] = tok
	}
	return Authorization{Token: tok, AmountCents: req.AmountCents}, nil
}

// Capture is idempotent for a repeated call with the same amount.
func (s *Sandbox) Capture(_ context.Context, token string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok {
		return ErrUnknownToken
	}
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	if amountCents > h.amount {
		return ErrOverCapture
	}
	switch h.state {
	case holdCaptured:
		if h.captured == amountCents {
			return nil
		}
		return ErrAlreadySettled
	case holdReleased, holdRefunded:
		return ErrAlreadySettled
	}
	h.state = holdCaptured
	h.captured = amountCents
	return nil
}

func (s *Sandbox) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok {
		return ErrUnknownToken
	}
	switch h.state {
	case holdReleased:
		return nil
	case holdCaptured, holdRefunded:
		return ErrAlreadySettled
	}
	h.state = holdReleased
	return nil
}

func (s *Sandbox) Refund(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok {
		return ErrUnknownToken
	}
	switch h.state {
	case holdRefunded:
		return nil
	case holdCaptured:
		h.state = holdRefunded
		return nil
	}
	return ErrNotCaptured
}

// Captured reports the captured amount for token, for assertions.
func (s *Sandbox) Captured(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok || h.state != holdCaptured {
		return 0, false
	}
	return h.captured, true
}

// Open counts authorizations that are neither captured nor released.
func (s *Sandbox) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.holds {
		if h.state == holdAuthorized {
			n++
		}
	}
	return n
}
