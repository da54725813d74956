package httpapi

import (
	"errors"
	"net/http"

	"endlessessentials.app/internal/auth"
)

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// issueToken answers GET /jwt?email=. Unknown emails get 403 with an empty token.
func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token, err := a.tokens.Issue(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			writeJSON(w, http.StatusForbidden, tokenResponse{AccessToken: ""})
			return
		}
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}
