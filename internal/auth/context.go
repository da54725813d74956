package auth

import (
	"context"
	"strings"
)

type emailContextKey struct{}

// ContextWithEmail attaches the authenticated email claim to the context.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailContextKey{}, strings.TrimSpace(email))
}

// EmailFromContext extracts the authenticated email claim from the context.
func EmailFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(emailContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
