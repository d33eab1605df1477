// Package stripe defines the interface for the Stripe calls behind premium
// auto-pay and the helpers that turn a recommended plan into a charge.
package stripe

import (
	"context"
	"errors"
	"strconv"
)

// Currency is the only currency plans are priced in.
const Currency = "inr"

// ErrInvalidAmount is returned when a premium is zero or negative.
var ErrInvalidAmount = errors.New("stripe: premium must be positive")

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CreatePaymentIntentParams holds the inputs for creating a Stripe PI.
// Amount is in the currency's minor unit (paise for INR).
type CreatePaymentIntentParams struct {
	Amount      int64
	Currency    string
	Email       string
	Description string
	Metadata    map[string]string
}

// PaymentIntent is the subset of a Stripe PaymentIntent that callers need.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	CustomerID   string // may be empty if no Customer was created
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is the interface the api package uses for Stripe calls. The concrete
// implementation wraps the official stripe-go SDK. Tests inject a stub.
type Client interface {
	// CreatePaymentIntent creates a new PI and returns its client_secret.
	CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error)
}

// ─── HELPERS USED BY api/ ────────────────────────────────────────────────────

// PremiumIntentParams builds the PI for one month of a plan's premium.
// premiumINR is whole rupees, as produced by the planning package.
func PremiumIntentParams(userID, email, planName string, premiumINR int) (CreatePaymentIntentParams, error) {
	if premiumINR <= 0 {
		return CreatePaymentIntentParams{}, ErrInvalidAmount
	}
	return CreatePaymentIntentParams{
		Amount:      int64(premiumINR) * 100,
		Currency:    Currency,
		Email:       email,
		Description: "CareFund monthly premium: " + planName,
		Metadata: map[string]string{
			"user_id":     userID,
			"plan":        planName,
			"premium_inr": strconv.Itoa(premiumINR),
			"product":     "carefund_premium",
		},
	}, nil
}
