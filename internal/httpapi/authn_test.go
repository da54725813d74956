package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/market"
)

func newTestGuard(t *testing.T) (*Guard, *auth.TokenService, *market.InMemory) {
	t.Helper()
	store := market.NewInMemory()
	tokens, err := auth.NewTokenService(store.Users(), "test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewGuard(tokens, store.Users()), tokens, store
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthenticatedAttachesEmail(t *testing.T) {
	guard, tokens, store := newTestGuard(t)
	_, _ = store.Users().Create(context.Background(), market.User{Email: "a@x.com"})
	token, _ := tokens.Issue(context.Background(), "a@x.com")

	var seen string
	handler := guard.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.EmailFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "a@x.com" {
		t.Fatalf("expected email in context, got %q", seen)
	}
}

func TestRequireAuthenticatedStatuses(t *testing.T) {
	guard, _, _ := newTestGuard(t)
	var calls int
	handler := guard.RequireAuthenticated(okHandler(&calls))

	cases := map[string]struct {
		header string
		want   int
	}{
		"absent":      {"", http.StatusUnauthorized},
		"scheme only": {"Bearer", http.StatusForbidden},
		"garbage":     {"Bearer abc.def.ghi", http.StatusForbidden},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", name, tc.want, rr.Code)
		}
	}
	if calls != 0 {
		t.Fatalf("handler must not run for rejected requests, ran %d times", calls)
	}
}

func TestRequireAdminIncludesAuthentication(t *testing.T) {
	guard, tokens, store := newTestGuard(t)
	ctx := context.Background()
	_, _ = store.Users().Create(ctx, market.User{Email: "a@x.com"})
	_, _ = store.Users().Create(ctx, market.User{Email: "root@x.com", Role: market.RoleAdmin})

	var calls int
	handler := guard.RequireAdmin(okHandler(&calls))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", rr.Code)
	}

	plain, _ := tokens.Issue(ctx, "a@x.com")
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+plain)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	admin, _ := tokens.Issue(ctx, "root@x.com")
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected admin to proceed, got %d calls=%d", rr.Code, calls)
	}
}

func TestRequireAdminDeletedUser(t *testing.T) {
	guard, tokens, store := newTestGuard(t)
	ctx := context.Background()
	res, _ := store.Users().Create(ctx, market.User{Email: "root@x.com", Role: market.RoleAdmin})
	token, _ := tokens.Issue(ctx, "root@x.com")
	_, _ = store.Users().Delete(ctx, res.InsertedID)

	var calls int
	req := httptest.NewRequest(http.MethodDelete, "/users/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	guard.RequireAdmin(okHandler(&calls)).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden || calls != 0 {
		t.Fatalf("expected 403 once the admin record is gone, got %d", rr.Code)
	}
}

func TestCredentialField(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"token   abc  x": "abc",
		"abc":            "",
		"":               "",
	}
	for header, want := range cases {
		if got := credential(header); got != want {
			t.Fatalf("credential(%q)=%q, want %q", header, got, want)
		}
	}
}
