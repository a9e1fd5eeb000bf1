package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Captor settles a fare hold once the ride reaches its terminal state.
type Captor interface {
	Capture(ctx context.Context, paymentIntentID string) error
	Release(ctx context.Context, paymentIntentID string) error
}

// StripeCaptor captures or releases PaymentIntent holds placed by the booking
// service at ride creation.
type StripeCaptor struct{}

// NewStripeCaptor sets the package-level API key and returns a captor. An
// empty key disables the integration; callers should pass Nop instead.
func NewStripeCaptor(apiKey string) *StripeCaptor {
	stripe.Key = apiKey
	return &StripeCaptor{}
}

func (s *StripeCaptor) Capture(_ context.Context, paymentIntentID string) error {
	if _, err := paymentintent.Capture(paymentIntentID, nil); err != nil {
		return fmt.Errorf("capture payment intent %s: %w", paymentIntentID, err)
	}
	return nil
}

// Release cancels the hold so the rider is never charged.
func (s *StripeCaptor) Release(_ context.Context, paymentIntentID string) error {
	if _, err := paymentintent.Cancel(paymentIntentID, nil); err != nil {
		return fmt.Errorf("release payment intent %s: %w", paymentIntentID, err)
	}
	return nil
}

// Nop is used when no Stripe key is configured.
type Nop struct{}

func (Nop) Capture(context.Context, string) error { return nil }
func (Nop) Release(context.Context, string) error { return nil }
