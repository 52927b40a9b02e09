package payments

import (
	"context"
	"math"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeClient wraps stripe-go PaymentIntent hold/capture/release for the
// fare flow: hold on create, capture on completion, release on cancel.
type StripeClient struct {
	currency string
}

// NewStripeClient sets the global stripe key and the currency used for
// every fare intent.
func NewStripeClient(apiKey, currency string) *StripeClient {
	stripe.Key = apiKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeClient{currency: currency}
}

// Hold creates a manual-capture PaymentIntent for the fare and returns its
// ID.
func (s *StripeClient) Hold(ctx context.Context, fare float64, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(FareCents(fare)),
		Currency: stripe.String(s.currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// Release cancels the hold without charging.
func (s *StripeClient) Release(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}

// FareCents converts a fare amount to the integer minor units Stripe wants.
func FareCents(fare float64) int64 {
	return int64(math.Round(fare * 100))
}
