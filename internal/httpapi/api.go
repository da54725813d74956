package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"endlessessentials.app/internal/audit"
	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/events"
	"endlessessentials.app/internal/market"
	"endlessessentials.app/internal/obs"
	"endlessessentials.app/internal/payments"
)

const banner = "Endless Essentials server is running"

// PaymentService records payments and creates gateway intents.
type PaymentService interface {
	RecordPayment(ctx context.Context, p market.Payment) (market.InsertResult, error)
	CreatePaymentIntent(ctx context.Context, price float64) (string, error)
}

// API is the HTTP layer over the marketplace collections.
type API struct {
	store    market.Store
	tokens   *auth.TokenService
	guard    *Guard
	payments PaymentService
	hub      *events.Hub
	version  string

	rateBurst      int
	ratePerSec     int
	allowedOrigins []string
}

// Option configures an API.
type Option func(*API)

// WithRateLimit sets the per-client token bucket.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

// WithEventHub enables the admin payment event stream.
func WithEventHub(h *events.Hub) Option {
	return func(a *API) {
		a.hub = h
	}
}

// WithAllowedOrigins sets the CORS allow list. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(a *API) {
		a.allowedOrigins = origins
	}
}

func New(store market.Store, tokens *auth.TokenService, pay PaymentService, version string, opts ...Option) *API {
	a := &API{
		store:          store,
		tokens:         tokens,
		guard:          NewGuard(tokens, store.Users()),
		payments:       pay,
		version:        version,
		rateBurst:      60,
		ratePerSec:     30,
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler builds the router with the full middleware chain.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(obs.Instrument)
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(CORS(a.allowedOrigins))
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, a.rateBurst, a.ratePerSec) })
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, 1<<20) })

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", a.root)
	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Get("/jwt", a.issueToken)

	a.routeCatalog(r)
	a.routeUsers(r)
	a.routeBookings(r)
	a.routePayments(r)

	return r
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, banner)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "essentials-api",
		"version": a.version,
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().WarnContext(ctx, "audit log failed", obs.Err(err))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// decodeValid decodes the body into dst and runs struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, payments.ErrGateway):
		obs.Logger().ErrorContext(r.Context(), "payment gateway call failed", obs.Err(err), "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusBadGateway, "payment gateway unavailable")
	default:
		obs.Logger().ErrorContext(r.Context(), "request failed", obs.Err(err),
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
