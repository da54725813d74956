// Package stripegw adapts Stripe PaymentIntents to payments.IntentGateway.
package stripegw

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"endlessessentials.app/internal/payments"
)

// Gateway creates PaymentIntents with a secret key.
type Gateway struct {
	client paymentintent.Client
}

var _ payments.IntentGateway = (*Gateway)(nil)

// Option configures the Stripe backend.
type Option func(*stripe.BackendConfig)

// WithBackendURL points the client at a different API host (tests, stripe-mock).
func WithBackendURL(url string) Option {
	return func(cfg *stripe.BackendConfig) {
		cfg.URL = stripe.String(url)
	}
}

// New builds a Gateway. Network retries are disabled: a failed call surfaces immediately.
func New(secretKey string, opts ...Option) (*Gateway, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Gateway{
		client: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Key: secretKey,
		},
	}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
	}
	params.Context = ctx

	pi, err := g.client.New(params)
	if err != nil {
		return payments.Intent{}, err
	}
	return payments.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
