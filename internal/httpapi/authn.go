package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/market"
)

const authHeader = "Authorization"

// Guard gates routes on a verified bearer token and, for admin routes, on the stored role.
type Guard struct {
	tokens *auth.TokenService
	users  market.IdentityStore
}

func NewGuard(tokens *auth.TokenService, users market.IdentityStore) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// RequireAuthenticated answers 401 when the Authorization header is absent and 403 when
// the presented credential does not verify. The email claim is attached to the context.
func (g *Guard) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="essentials"`)
			writeError(w, r, http.StatusUnauthorized, "unauthorized access")
			return
		}
		token := credential(header)
		if token == "" {
			writeError(w, r, http.StatusForbidden, "forbidden access")
			return
		}
		claims, err := g.tokens.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusForbidden, "forbidden access")
			return
		}
		ctx := auth.ContextWithEmail(r.Context(), claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin authenticates the request and then requires role=admin on the stored user.
// Authentication is part of the chain, so it cannot be mounted without it.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireAuthenticated(g.adminOnly(next))
}

func (g *Guard) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := auth.EmailFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusForbidden, "forbidden access")
			return
		}
		user, err := g.users.FindByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, market.ErrNotFound) {
				writeError(w, r, http.StatusForbidden, "forbidden access")
				return
			}
			handleStoreError(w, r, err)
			return
		}
		if !user.IsAdmin() {
			writeError(w, r, http.StatusForbidden, "forbidden access")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireIdentity reports whether email belongs to the authenticated caller, answering 403 otherwise.
func requireIdentity(w http.ResponseWriter, r *http.Request, email string) bool {
	claimed, ok := auth.EmailFromContext(r.Context())
	if !ok || claimed != email {
		writeError(w, r, http.StatusForbidden, "forbidden access")
		return false
	}
	return true
}

// requireOwner reports whether the caller owns a document stored under owner or is an admin,
// answering 403 otherwise. An empty owner can only be reached by admins.
func (g *Guard) requireOwner(w http.ResponseWriter, r *http.Request, owner string) bool {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusForbidden, "forbidden access")
		return false
	}
	if owner != "" && email == owner {
		return true
	}
	user, err := g.users.FindByEmail(r.Context(), email)
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, r, http.StatusForbidden, "forbidden access")
		return false
	case err != nil:
		handleStoreError(w, r, err)
		return false
	case !user.IsAdmin():
		writeError(w, r, http.StatusForbidden, "forbidden access")
		return false
	}
	return true
}

// credential returns the second whitespace-separated field of an Authorization header.
func credential(header string) string {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
