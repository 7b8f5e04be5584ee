package controllers

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/api/responses"
	"github.com/shopstack-dev/shopstack-backend/api/validators"
	shippingsvc "github.com/shopstack-dev/shopstack-backend/internal/shipping"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

// ListShippingMethods handles the public listing of active methods,
// cheapest first.
func ListShippingMethods(repo shippingsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping repository unavailable"))
			return
		}

		methods, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing shipping methods"))
			return
		}

		out := make([]shippingMethodResponse, 0, len(methods))
		for _, method := range methods {
			out = append(out, newShippingMethodResponse(method))
		}
		responses.WriteSuccess(w, out)
	}
}

// CreateShippingMethod handles admin creation of a delivery option.
func CreateShippingMethod(repo shippingsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping repository unavailable"))
			return
		}

		var payload shippingMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := repo.Create(r.Context(), &models.ShippingMethod{
			ID:        uuid.New(),
			Name:      payload.Name,
			RateCents: payload.RateCents,
			EtaDays:   payload.EtaDays,
			IsActive:  true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating shipping method"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newShippingMethodResponse(*method))
	}
}

// UpdateShippingMethod handles admin edits. Only provided fields change.
func UpdateShippingMethod(repo shippingsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method id"))
			return
		}

		var payload updateShippingMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{}
		if payload.Name != nil {
			updates["name"] = *payload.Name
		}
		if payload.RateCents != nil {
			updates["rate_cents"] = *payload.RateCents
		}
		if payload.EtaDays != nil {
			updates["eta_days"] = *payload.EtaDays
		}
		if payload.IsActive != nil {
			updates["is_active"] = *payload.IsActive
		}
		if len(updates) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update"))
			return
		}

		if err := repo.Update(r.Context(), id, updates); err != nil {
			responses.WriteError(r.Context(), logg, w, shippingLookupError(err))
			return
		}

		method, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, shippingLookupError(err))
			return
		}
		responses.WriteSuccess(w, newShippingMethodResponse(*method))
	}
}

// DeactivateShippingMethod handles admin retirement of a delivery option.
// The row stays for historical orders.
func DeactivateShippingMethod(repo shippingsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method id"))
			return
		}

		if err := repo.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, shippingLookupError(err))
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func shippingLookupError(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeShippingNotFound, "shipping method not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating shipping method")
}

type shippingMethodRequest struct {
	Name      string `json:"name" validate:"required"`
	RateCents int    `json:"rateCents" validate:"min=0"`
	EtaDays   *int   `json:"etaDays,omitempty" validate:"omitempty,min=0"`
}

type updateShippingMethodRequest struct {
	Name      *string `json:"name,omitempty"`
	RateCents *int    `json:"rateCents,omitempty" validate:"omitempty,min=0"`
	EtaDays   *int    `json:"etaDays,omitempty" validate:"omitempty,min=0"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

type shippingMethodResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	RateCents int       `json:"rateCents"`
	EtaDays   *int      `json:"etaDays,omitempty"`
	IsActive  bool      `json:"isActive"`
}

func newShippingMethodResponse(method models.ShippingMethod) shippingMethodResponse {
	return shippingMethodResponse{
		ID:        method.ID,
		Name:      method.Name,
		RateCents: method.RateCents,
		EtaDays:   method.EtaDays,
		IsActive:  method.IsActive,
	}
}
