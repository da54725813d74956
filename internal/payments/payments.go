package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"endlessessentials.app/internal/audit"
	"endlessessentials.app/internal/events"
	"endlessessentials.app/internal/market"
	"endlessessentials.app/internal/obs"
)

const (
	// Currency is fixed; prices arrive in whole dollars.
	Currency         = "usd"
	methodCard       = "card"
	minorUnitsPerOne = 100
)

// ErrGateway wraps failures returned by the payment gateway.
var ErrGateway = errors.New("payment gateway failure")

// IntentRequest describes a charge intent in minor units.
type IntentRequest struct {
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
}

// Intent is the gateway-side charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentGateway creates payment intents at the processor.
type IntentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// EventPublisher publishes domain events. Optional.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Coordinator records payments against bookings and talks to the gateway.
//
// RecordPayment performs two independent writes (payment insert, booking update)
// without a transaction; a failure between them leaves the payment recorded and
// the booking unpaid.
type Coordinator struct {
	payments   market.PaymentStore
	bookings   market.BookingStore
	gateway    IntentGateway
	publishers []EventPublisher
	tracer     trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher emits payment events after each recorded payment. May be given more than once.
func WithPublisher(p EventPublisher) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.publishers = append(c.publishers, p)
		}
	}
}

func NewCoordinator(store market.Store, gateway IntentGateway, opts ...Option) *Coordinator {
	c := &Coordinator{
		payments: store.Payments(),
		bookings: store.Bookings(),
		gateway:  gateway,
		tracer:   otel.Tracer("endlessessentials.app/internal/payments"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordPayment appends p to the payment log, then marks its booking paid with p.TransactionID.
// It returns the insert result; the booking update result is not surfaced.
func (c *Coordinator) RecordPayment(ctx context.Context, p market.Payment) (market.InsertResult, error) {
	ctx, span := c.tracer.Start(ctx, "payments.RecordPayment",
		trace.WithAttributes(attribute.String("booking.id", p.BookingID)))
	defer span.End()

	inserted, err := c.payments.Insert(ctx, p)
	if err != nil {
		span.RecordError(err)
		return market.InsertResult{}, fmt.Errorf("insert payment: %w", err)
	}

	updated, err := c.bookings.MarkPaid(ctx, p.BookingID, p.TransactionID)
	if err != nil {
		span.RecordError(err)
		return market.InsertResult{}, fmt.Errorf("mark booking %s paid: %w", p.BookingID, err)
	}
	matched := updated.MatchedCount > 0
	if !matched {
		obs.Logger().WarnContext(ctx, "payment recorded without matching booking",
			"booking_id", p.BookingID,
			"payment_id", inserted.InsertedID,
		)
	}
	obs.ObservePaymentRecorded(matched)

	_ = audit.LogEvent(ctx, "payment.recorded", map[string]any{
		"payment_id":     inserted.InsertedID,
		"booking_id":     p.BookingID,
		"transaction_id": p.TransactionID,
		"booking_found":  matched,
	})

	ev := events.PaymentRecordedEvent{
		PaymentID:     inserted.InsertedID,
		BookingID:     p.BookingID,
		TransactionID: p.TransactionID,
		Price:         p.Price,
		Email:         p.Email,
		BookingFound:  matched,
	}
	for _, pub := range c.publishers {
		if err := pub.PublishJSON(ctx, events.PaymentRecorded, ev); err != nil {
			obs.Logger().ErrorContext(ctx, "publish payment event failed", obs.Err(err))
		}
	}

	return inserted, nil
}

// CreatePaymentIntent requests a card-only USD intent for price (whole dollars) and returns its client secret.
func (c *Coordinator) CreatePaymentIntent(ctx context.Context, price float64) (string, error) {
	ctx, span := c.tracer.Start(ctx, "payments.CreatePaymentIntent")
	defer span.End()

	req := IntentRequest{
		Amount:             MinorUnits(price),
		Currency:           Currency,
		PaymentMethodTypes: []string{methodCard},
	}
	span.SetAttributes(attribute.Int64("payment.amount", req.Amount))

	intent, err := c.gateway.CreateIntent(ctx, req)
	if err != nil {
		obs.ObservePaymentIntent("failed")
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}
	obs.ObservePaymentIntent("created")
	return intent.ClientSecret, nil
}

// MinorUnits converts a whole-unit price into cents, rounding to the nearest cent.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * minorUnitsPerOne))
}

// ErrNotConfigured is returned by the disabled gateway.
var ErrNotConfigured = errors.New("payment gateway not configured")

type disabledGateway struct{}

func (disabledGateway) CreateIntent(context.Context, IntentRequest) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

// DisabledGateway rejects every intent; used when no processor key is configured.
func DisabledGateway() IntentGateway { return disabledGateway{} }
