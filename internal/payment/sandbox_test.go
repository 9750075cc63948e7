package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox_AuthorizeCapture(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()

	a, err := s.Authorize(ctx, AuthorizeRequest{AmountCents: 7000, IdempotencyKey: "k1"})
	require.NoError(t, err)
	again, err := s.Authorize(ctx, AuthorizeRequest{AmountCents: 7000, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, a.Token, again.Token)
	assert.Equal(t, 1, s.Open())

	assert.ErrorIs(t, s.Capture(ctx, a.Token, 7001), ErrOverCapture)
	require.NoError(t, s.Capture(ctx, a.Token, 4500))
	require.NoError(t, s.Capture(ctx, a.Token, 4500))
	assert.ErrorIs(t, s.Capture(ctx, a.Token, 4000), ErrAlreadySettled)
	assert.ErrorIs(t, s.Release(ctx, a.Token), ErrAlreadySettled)

	got, ok := s.Captured(a.Token)
	assert.True(t, ok)
	assert.Equal(t, int64(4500), got)

	require.NoError(t, s.Refund(ctx, a.Token))
	require.NoError(t, s.Refund(ctx, a.Token))
	assert.Zero(t, s.Open())
}

func TestSandbox_Release(t *testing.T) {
	ctx := context.Background()
	s := NewSandbox()
	a, err := s.Authorize(ctx, AuthorizeRequest{AmountCents: 100})
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, a.Token))
	require.NoError(t, s.Release(ctx, a.Token))
	assert.ErrorIs(t, s.Capture(ctx, a.Token, 100), ErrAlreadySettled)
	assert.ErrorIs(t, s.Refund(ctx, a.Token), ErrNotCaptured)
	assert.ErrorIs(t, s.Release(ctx, "nope"), ErrUnknownToken)
}

func TestSandbox_FailAuthorizeOnce(t *testing.T) {
	s := NewSandbox()
	boom := errors.New("gateway timeout")
	s.FailAuthorize = boom

	_, err := s.Authorize(context.Background(), AuthorizeRequest{AmountCents: 100})
	assert.ErrorIs(t, err, boom)
	_, err = s.Authorize(context.Background(), AuthorizeRequest{AmountCents: 100})
	assert.NoError(t, err)
	_, err = s.Authorize(context.Background(), AuthorizeRequest{AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
