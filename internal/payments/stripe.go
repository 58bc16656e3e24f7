package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrNoHold        = errors.New("no uncaptured payment hold for bid")
)

// StripeClient holds collector funds when a bid is accepted and settles them at pickup.
type StripeClient struct {
	currency string
}

// NewStripeClient sets the process-wide stripe key; stripe-go keeps it globally.
func NewStripeClient(apiKey, currency string) *StripeClient {
	stripe.Key = apiKey
	if currency == "" {
		currency = string(stripe.CurrencyINR)
	}
	return &StripeClient{currency: currency}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(amount * 100)), nil
}

// Hold creates a manual-capture PaymentIntent for an accepted bid and returns its ID.
func (s *StripeClient) Hold(ctx context.Context, bidID string, amount float64, customerID string) (string, error) {
	minor, err := ToMinorUnits(amount)
	if err != nil {
		return "", err
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(s.currency),
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("bid_id", bidID)
	params.SetIdempotencyKey("hold-" + bidID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := paymentintent.Cancel(paymentIntentID, params)
	return err
}

var searchEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func searchQueryForBid(bidID string) string {
	return fmt.Sprintf("metadata['bid_id']:'%s'", searchEscaper.Replace(bidID))
}

// FindHold returns the uncaptured PaymentIntent that Hold created for bidID.
// Stripe's search index lags writes by up to a minute.
func (s *StripeClient) FindHold(ctx context.Context, bidID string) (string, error) {
	params := &stripe.PaymentIntentSearchParams{}
	params.Query = searchQueryForBid(bidID)
	params.Context = ctx
	it := paymentintent.Search(params)
	for it.Next() {
		pi := it.PaymentIntent()
		if pi.Status == stripe.PaymentIntentStatusRequiresCapture {
			return pi.ID, nil
		}
	}
	if err := it.Err(); err != nil {
		return "", err
	}
	return "", ErrNoHold
}
