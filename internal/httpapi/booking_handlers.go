package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/market"
)

type bookingRequest struct {
	Email        string  `json:"email" validate:"omitempty,email"`
	BuyerName    string  `json:"buyerName" validate:"max=200"`
	Phone        string  `json:"phone" validate:"max=40"`
	MeetLocation string  `json:"meetLocation"`
	ProductID    string  `json:"productId" validate:"required"`
	ProductName  string  `json:"productName"`
	Image        string  `json:"image" validate:"omitempty,url"`
	Price        float64 `json:"price" validate:"gte=0"`
}

type paymentRequest struct {
	BookingID     string  `json:"bookingId" validate:"required,mongodb"`
	TransactionID string  `json:"transactionId" validate:"required"`
	Price         float64 `json:"price"`
	Email         string  `json:"email" validate:"omitempty,email"`
}

type paymentIntentRequest struct {
	Price *float64 `json:"price" validate:"required"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (a *API) routeBookings(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Use(a.guard.RequireAuthenticated)
		r.Get("/", a.listBookings)
		r.Post("/", a.createBooking)
		r.Get("/{id}", a.getBooking)
		r.Delete("/{id}", a.deleteBooking)
	})
}

func (a *API) routePayments(r chi.Router) {
	r.Post("/create-payment-intent", a.createPaymentIntent)
	r.Post("/payments", a.recordPayment)
	r.With(a.guard.RequireAuthenticated).Get("/payments", a.listPayments)
	r.With(a.guard.RequireAdmin).Get("/payments/stream", a.paymentStream)
}

func (a *API) listBookings(w http.ResponseWriter, r *http.Request) {
	email := queryParam(r, "email")
	if !requireIdentity(w, r, email) {
		return
	}
	bookings, err := a.store.Bookings().ListByEmail(r.Context(), email)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (a *API) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := a.store.Bookings().Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if !requireIdentity(w, r, b.Email) {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !decodeValid(w, r, &req) {
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	if req.Email != "" && !requireIdentity(w, r, req.Email) {
		return
	}
	res, err := a.store.Bookings().Create(r.Context(), market.Booking{
		Email:        email,
		BuyerName:    req.BuyerName,
		Phone:        req.Phone,
		MeetLocation: req.MeetLocation,
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		Image:        req.Image,
		Price:        req.Price,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "booking.create", map[string]any{"booking_id": res.InsertedID, "product_id": req.ProductID})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := a.store.Bookings().Find(r.Context(), id)
	if errors.Is(err, market.ErrNotFound) {
		writeJSON(w, http.StatusOK, market.DeleteResult{Acknowledged: true})
		return
	}
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if !a.guard.requireOwner(w, r, b.Email) {
		return
	}
	res, err := a.store.Bookings().Delete(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "booking.delete", map[string]any{"booking_id": id, "deleted": res.DeletedCount})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	secret, err := a.payments.CreatePaymentIntent(r.Context(), *req.Price)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: secret})
}

// recordPayment appends the payment and marks the booking paid; the response is the payment insert result.
func (a *API) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := a.payments.RecordPayment(r.Context(), market.Payment{
		BookingID:     req.BookingID,
		TransactionID: req.TransactionID,
		Price:         req.Price,
		Email:         req.Email,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	bookingID := queryParam(r, "bookingId")
	if err := validateVar("bookingId", bookingID, "required,mongodb"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Payments recorded against a missing booking have no owner to match.
	var owner string
	b, err := a.store.Bookings().Find(r.Context(), bookingID)
	switch {
	case err == nil:
		owner = b.Email
	case !errors.Is(err, market.ErrNotFound):
		handleStoreError(w, r, err)
		return
	}
	if !a.guard.requireOwner(w, r, owner) {
		return
	}
	list, err := a.store.Payments().ListByBooking(r.Context(), bookingID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
