package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// Stripe authorizes with manual-capture PaymentIntents so the hold can later
// be captured for the final price or cancelled.
type Stripe struct {
	api      *client.API
	currency string
}

func NewStripe(secretKey, currency string, backends *stripe.Backends) *Stripe {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Stripe{api: api, currency: currency}
}

func (s *Stripe) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	if req.AmountCents <= 0 {
		return Authorization{}, ErrInvalidAmount
	}
	cur := req.Currency
	if cur == "" {
		cur = s.currency
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(cur),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethod: stripe.String(req.PaymentMethod),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Authorization{}, classify(err)
	}
	if pi.Status != stripe.PaymentIntentStatusRequiresCapture {
		return Authorization{}, errors.New("payment: intent " + pi.ID + " not authorized: " + string(pi.Status))
	}
	return Authorization{Token: pi.ID, AmountCents: pi.Amount}, nil
}

func (s *Stripe) Capture(ctx context.Context, token string, amountCents int64) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	params := &stripe.PaymentIntentCaptureParams{AmountToCapture: stripe.Int64(amountCents)}
	params.Context = ctx
	params.SetIdempotencyKey("capture-" + token)
	_, err := s.api.PaymentIntents.Capture(token, params)
	return classify(err)
}

func (s *Stripe) Release(ctx context.Context, token string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey("cancel-" + token)
	_, err := s.api.PaymentIntents.Cancel(token, params)
	return classify(err)
}

func (s *Stripe) Refund(ctx context.Context, token string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(token)}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + token)
	_, err := s.api.Refunds.New(params)
	return classify(err)
}

// Declined reports whether err is a card decline rather than a provider fault.
func Declined(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.Type == stripe.ErrorTypeCard
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceMissing {
		return errors.Join(ErrUnknownToken, err)
	}
	return err
}
