package stripegw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"endlessessentials.app/internal/payments"
)

func TestCreateIntentPostsCardOnlyUSD(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{
			"amount":                  r.PostForm.Get("amount"),
			"currency":                r.PostForm.Get("currency"),
			"payment_method_types[0]": r.PostForm.Get("payment_method_types[0]"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":2500,"currency":"usd","client_secret":"pi_123_secret_abc"}`))
	}))
	defer srv.Close()

	gw, err := New("sk_test_123", WithBackendURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	intent, err := gw.CreateIntent(context.Background(), payments.IntentRequest{
		Amount:             2500,
		Currency:           "usd",
		PaymentMethodTypes: []string{"card"},
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ClientSecret != "pi_123_secret_abc" || intent.ID != "pi_123" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if form["amount"] != "2500" || form["currency"] != "usd" || form["payment_method_types[0]"] != "card" {
		t.Fatalf("unexpected form: %v", form)
	}
}

func TestCreateIntentSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least $0.50 usd"}}`))
	}))
	defer srv.Close()

	gw, _ := New("sk_test_123", WithBackendURL(srv.URL))
	if _, err := gw.CreateIntent(context.Background(), payments.IntentRequest{Amount: 1, Currency: "usd"}); err == nil {
		t.Fatal("expected error from gateway")
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for missing key")
	}
}
