package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"endlessessentials.app/internal/market"
)

func newTestService(t *testing.T, opts ...TokenOption) (*TokenService, *market.InMemory) {
	t.Helper()
	store := market.NewInMemory()
	if _, err := store.Users().Create(context.Background(), market.User{Email: "a@x.com"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc, err := NewTokenService(store.Users(), "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc, store
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	token, err := svc.Issue(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("unexpected email claim: %q", claims.Email)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != DefaultTokenTTL {
		t.Fatalf("expected 7 day ttl, got %v", ttl)
	}
}

func TestIssueUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	token, err := svc.Issue(context.Background(), "nobody@x.com")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestVerifyFailureKinds(t *testing.T) {
	issuedAt := time.Now().Add(-8 * 24 * time.Hour)
	expiredSvc, _ := newTestService(t, WithClock(func() time.Time { return issuedAt }))
	expired, err := expiredSvc.Issue(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc, store := newTestService(t)
	other, _ := NewTokenService(store.Users(), "other-secret")
	foreign, _ := other.Issue(context.Background(), "a@x.com")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "a@x.com"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]struct {
		token string
		want  error
	}{
		"missing":      {"", ErrUnauthenticated},
		"blank":        {"   ", ErrUnauthenticated},
		"malformed":    {"not-a-jwt", ErrForbidden},
		"expired":      {expired, ErrForbidden},
		"wrong secret": {foreign, ErrForbidden},
		"alg none":     {unsigned, ErrForbidden},
	}
	for name, tc := range cases {
		if _, err := svc.Verify(tc.token); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(market.NewInMemory().Users(), " "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithEmail(context.Background(), " a@x.com ")
	email, ok := EmailFromContext(ctx)
	if !ok || email != "a@x.com" {
		t.Fatalf("unexpected email: %q ok=%v", email, ok)
	}
	if _, ok := EmailFromContext(context.Background()); ok {
		t.Fatal("expected no email in empty context")
	}
}
