package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"endlessessentials.app/internal/market"
)

// DefaultTokenTTL is the lifetime of an issued access token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims carried by an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens bound to an email.
type TokenService struct {
	users  market.IdentityStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService signing with secret.
func NewTokenService(users market.IdentityStore, secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	s := &TokenService{
		users:  users,
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for email if a user with that email exists.
// Unknown emails yield ErrForbidden and an empty token.
func (s *TokenService) Issue(ctx context.Context, email string) (string, error) {
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, market.ErrNotFound) {
			return "", ErrForbidden
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry.
// An absent token is ErrUnauthenticated; anything else that fails is ErrForbidden.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrForbidden
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Email) == "" {
		return nil, ErrForbidden
	}
	return claims, nil
}
