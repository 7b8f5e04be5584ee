package controllers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/api/responses"
	productsvc "github.com/shopstack-dev/shopstack-backend/internal/products"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListActive(ctx context.Context, filters productsvc.ListFilters) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// ListProducts handles the public catalog listing with optional category and
// search filters.
func ListProducts(repo productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		filters := productsvc.ListFilters{
			CategorySlug: strings.TrimSpace(r.URL.Query().Get("category")),
			Search:       strings.TrimSpace(r.URL.Query().Get("q")),
		}

		products, err := repo.ListActive(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products"))
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, product := range products {
			out = append(out, newProductResponse(product))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetProduct handles a single product lookup by id.
func GetProduct(repo productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, productLookupError(err))
			return
		}

		responses.WriteSuccess(w, newProductResponse(*product))
	}
}

// GetProductBySlug handles a single product lookup by its URL slug.
func GetProductBySlug(repo productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required"))
			return
		}

		product, err := repo.FindBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, productLookupError(err))
			return
		}

		responses.WriteSuccess(w, newProductResponse(*product))
	}
}

// ListCategories handles the public category listing.
func ListCategories(repo productReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product repository unavailable"))
			return
		}

		categories, err := repo.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories"))
			return
		}

		out := make([]categoryResponse, 0, len(categories))
		for _, category := range categories {
			out = append(out, categoryResponse{
				ID:   category.ID,
				Name: category.Name,
				Slug: category.Slug,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func productLookupError(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
}

type productResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	PriceCents  int               `json:"priceCents"`
	Currency    string            `json:"currency"`
	ImageURL    *string           `json:"imageUrl,omitempty"`
	IsActive    bool              `json:"isActive"`
	Category    *categoryResponse `json:"category,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func newProductResponse(product models.Product) productResponse {
	resp := productResponse{
		ID:          product.ID,
		Slug:        product.Slug,
		Title:       product.Title,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Currency:    product.Currency,
		ImageURL:    product.ImageURL,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.Category != nil {
		resp.Category = &categoryResponse{
			ID:   product.Category.ID,
			Name: product.Category.Name,
			Slug: product.Category.Slug,
		}
	}
	return resp
}
