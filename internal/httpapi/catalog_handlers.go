package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/market"
)

// productRequest is the body for products and add-on listings; the seller email comes from the token.
type productRequest struct {
	CategoryID    string  `json:"categoryId" validate:"required"`
	Name          string  `json:"name" validate:"required,max=200"`
	Image         string  `json:"image" validate:"omitempty,url"`
	Location      string  `json:"location"`
	ResalePrice   float64 `json:"resalePrice" validate:"gte=0"`
	OriginalPrice float64 `json:"originalPrice" validate:"gte=0"`
	YearsOfUse    float64 `json:"yearsOfUse" validate:"gte=0"`
	Condition     string  `json:"condition"`
	SellerName    string  `json:"sellerName"`
	SellerEmail   string  `json:"sellerEmail" validate:"omitempty,email"`
}

func (p productRequest) product(sellerEmail string) market.Product {
	return market.Product{
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		Image:         p.Image,
		Location:      p.Location,
		ResalePrice:   p.ResalePrice,
		OriginalPrice: p.OriginalPrice,
		YearsOfUse:    p.YearsOfUse,
		Condition:     p.Condition,
		SellerName:    p.SellerName,
		SellerEmail:   sellerEmail,
		PostedAt:      time.Now().UTC(),
	}
}

type advertisementRequest struct {
	ProductID   string  `json:"productId" validate:"required"`
	Name        string  `json:"name" validate:"required,max=200"`
	Image       string  `json:"image" validate:"omitempty,url"`
	ResalePrice float64 `json:"resalePrice" validate:"gte=0"`
	SellerEmail string  `json:"sellerEmail" validate:"omitempty,email"`
}

func (a *API) routeCatalog(r chi.Router) {
	r.Get("/categories", a.listCategories)
	r.Get("/categories/{id}", a.getCategory)
	r.Get("/categories/{id}/products", a.listCategoryProducts)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.listProducts)
		r.Get("/{id}", a.getProduct)
		r.With(a.guard.RequireAuthenticated).Post("/", a.createProduct)
		r.With(a.guard.RequireAuthenticated).Put("/{id}/report", a.reportProduct)
		r.With(a.guard.RequireAdmin).Get("/reported", a.listReportedProducts)
		r.With(a.guard.RequireAdmin).Delete("/{id}", a.deleteProduct)
	})

	r.Route("/advertisements", func(r chi.Router) {
		r.Get("/", a.listAdvertisements)
		r.With(a.guard.RequireAuthenticated).Post("/", a.createAdvertisement)
		r.With(a.guard.RequireAuthenticated).Delete("/{id}", a.deleteAdvertisement)
	})

	r.Route("/listings", func(r chi.Router) {
		r.Use(a.guard.RequireAuthenticated)
		r.Get("/", a.listListings)
		r.Post("/", a.createListing)
		r.Delete("/{id}", a.deleteListing)
	})
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.store.Categories().List(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (a *API) getCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := a.store.Categories().Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (a *API) listCategoryProducts(w http.ResponseWriter, r *http.Request) {
	unreported := false
	a.writeProducts(w, r, market.ProductFilter{
		CategoryID: chi.URLParam(r, "id"),
		Reported:   &unreported,
	})
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	a.writeProducts(w, r, market.ProductFilter{SellerEmail: queryParam(r, "email")})
}

func (a *API) listReportedProducts(w http.ResponseWriter, r *http.Request) {
	reported := true
	a.writeProducts(w, r, market.ProductFilter{Reported: &reported})
}

func (a *API) writeProducts(w http.ResponseWriter, r *http.Request, f market.ProductFilter) {
	products, err := a.store.Products().List(r.Context(), f)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.Products().Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeValid(w, r, &req) {
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	if req.SellerEmail != "" && !requireIdentity(w, r, req.SellerEmail) {
		return
	}
	res, err := a.store.Products().Create(r.Context(), req.product(email))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.create", map[string]any{"product_id": res.InsertedID, "category_id": req.CategoryID})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) reportProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.store.Products().MarkReported(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.report", map[string]any{"product_id": id, "matched": res.MatchedCount})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.store.Products().Delete(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.delete", map[string]any{"product_id": id, "deleted": res.DeletedCount})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listAdvertisements(w http.ResponseWriter, r *http.Request) {
	ads, err := a.store.Advertisements().List(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ads)
}

func (a *API) createAdvertisement(w http.ResponseWriter, r *http.Request) {
	var req advertisementRequest
	if !decodeValid(w, r, &req) {
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	if req.SellerEmail != "" && !requireIdentity(w, r, req.SellerEmail) {
		return
	}
	res, err := a.store.Advertisements().Create(r.Context(), market.Advertisement{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Image:       req.Image,
		ResalePrice: req.ResalePrice,
		SellerEmail: email,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "advertisement.create", map[string]any{"advertisement_id": res.InsertedID, "product_id": req.ProductID})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteAdvertisement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ad, err := a.store.Advertisements().Find(r.Context(), id)
	if errors.Is(err, market.ErrNotFound) {
		writeJSON(w, http.StatusOK, market.DeleteResult{Acknowledged: true})
		return
	}
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if !a.guard.requireOwner(w, r, ad.SellerEmail) {
		return
	}
	res, err := a.store.Advertisements().Delete(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "advertisement.delete", map[string]any{"advertisement_id": id, "deleted": res.DeletedCount})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listListings(w http.ResponseWriter, r *http.Request) {
	email := queryParam(r, "email")
	if !requireIdentity(w, r, email) {
		return
	}
	listings, err := a.store.Listings().List(r.Context(), email)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (a *API) createListing(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeValid(w, r, &req) {
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	if req.SellerEmail != "" && !requireIdentity(w, r, req.SellerEmail) {
		return
	}
	res, err := a.store.Listings().Create(r.Context(), market.Listing(req.product(email)))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "listing.create", map[string]any{"listing_id": res.InsertedID})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) deleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := a.store.Listings().Find(r.Context(), id)
	if errors.Is(err, market.ErrNotFound) {
		writeJSON(w, http.StatusOK, market.DeleteResult{Acknowledged: true})
		return
	}
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if !a.guard.requireOwner(w, r, l.SellerEmail) {
		return
	}
	res, err := a.store.Listings().Delete(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "listing.delete", map[string]any{"listing_id": id, "deleted": res.DeletedCount})
	writeJSON(w, http.StatusOK, res)
}
