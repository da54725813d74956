package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"endlessessentials.app/internal/market"
)

type createUserRequest struct {
	Name        string `json:"name" validate:"max=200"`
	Email       string `json:"email" validate:"required,email"`
	AccountType string `json:"accountType" validate:"omitempty,oneof=buyer seller"`
	Verified    bool   `json:"verified"`
}

func (a *API) routeUsers(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", a.createUser)
		r.Get("/admin/{email}", a.isAdmin)
		r.Get("/seller/{email}", a.isSeller)

		r.Group(func(r chi.Router) {
			r.Use(a.guard.RequireAdmin)
			r.Get("/", a.listUsers)
			r.Delete("/{id}", a.deleteUser)
			r.Put("/admin/{id}", a.grantAdmin)
		})
	})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := a.store.Users().Create(r.Context(), market.User{
		Name:        req.Name,
		Email:       req.Email,
		AccountType: req.AccountType,
		Verified:    req.Verified,
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.create", map[string]any{
		"user_id": res.InsertedID,
		"account": req.AccountType,
	})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	accountType := queryParam(r, "accountType")
	if err := validateVar("accountType", accountType, "omitempty,oneof=buyer seller"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, err := a.store.Users().List(r.Context(), accountType)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.store.Users().Delete(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.delete", map[string]any{"user_id": id, "deleted": res.DeletedCount})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) grantAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.store.Users().SetAdmin(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.grant_admin", map[string]any{
		"user_id":  id,
		"matched":  res.MatchedCount,
		"upserted": res.UpsertedID != "",
	})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) isAdmin(w http.ResponseWriter, r *http.Request) {
	user, ok := a.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": user.IsAdmin()})
}

func (a *API) isSeller(w http.ResponseWriter, r *http.Request) {
	user, ok := a.lookupUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isSeller": user.IsSeller()})
}

// lookupUser loads the user named by the {email} path param; an unknown email yields the zero user.
func (a *API) lookupUser(w http.ResponseWriter, r *http.Request) (market.User, bool) {
	user, err := a.store.Users().FindByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil && !errors.Is(err, market.ErrNotFound) {
		handleStoreError(w, r, err)
		return market.User{}, false
	}
	return user, true
}
