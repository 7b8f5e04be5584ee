package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/api/middleware"
	"github.com/shopstack-dev/shopstack-backend/api/responses"
	"github.com/shopstack-dev/shopstack-backend/api/validators"
	checkoutsvc "github.com/shopstack-dev/shopstack-backend/internal/checkout"
	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/internal/promo"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

type cartAttacher interface {
	AttachUser(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type addressLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

type shippingLister interface {
	ListActive(ctx context.Context) ([]models.ShippingMethod, error)
}

// CheckoutSummary handles the pre-payment quote: the priced cart with
// provisional totals plus the address book, shipping options, and the
// suggested promotion.
func CheckoutSummary(
	svc checkoutsvc.Service,
	carts cartAttacher,
	addresses addressLister,
	shipping shippingLister,
	promos promo.Catalog,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID := middleware.SessionIDFromContext(r.Context())

		methods, err := shipping.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing shipping methods"))
			return
		}

		// Cheapest active method stands in until the shopper picks one.
		input := checkoutsvc.SummaryInput{}
		if len(methods) > 0 {
			input.ShippingMethodID = &methods[0].ID
		}

		summary, err := svc.Summary(r.Context(), sessionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := summaryResponse{
			Items:           summary.Items,
			SubtotalCents:   summary.SubtotalCents,
			TaxCents:        summary.TaxCents,
			ShippingCents:   summary.ShippingCents,
			DiscountCents:   summary.DiscountCents,
			TotalCents:      summary.TotalCents,
			Currency:        summary.Currency,
			Addresses:       []addressResponse{},
			ShippingMethods: []shippingMethodResponse{},
		}

		// An empty cart quotes zeros with empty pickers and skips the session
		// re-association.
		if len(summary.Items) == 0 {
			resp.Items = []pricing.PricedItem{}
			resp.ShippingCents = 0
			resp.TotalCents = 0
			responses.WriteSuccess(w, resp)
			return
		}

		if carts != nil {
			if err := carts.AttachUser(r.Context(), sessionID, userID); err != nil && logg != nil {
				logg.Warn(logg.WithSessionID(r.Context(), sessionID), "associating cart with user failed: "+err.Error())
			}
		}

		book, err := addresses.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for _, address := range book {
			resp.Addresses = append(resp.Addresses, newAddressResponse(address))
		}
		for _, method := range methods {
			resp.ShippingMethods = append(resp.ShippingMethods, newShippingMethodResponse(method))
		}
		if promos != nil {
			resp.SuggestedPromo = promos.Default()
		}

		responses.WriteSuccess(w, resp)
	}
}

// CheckoutPromo handles promo code validation before completion.
func CheckoutPromo(promos promo.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if promos == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo catalog unavailable"))
			return
		}

		var payload promoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := promos.Resolve(payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, code)
	}
}

// CheckoutComplete handles order finalization for the session cart.
func CheckoutComplete(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Complete(r.Context(), middleware.SessionIDFromContext(r.Context()), userID, checkoutsvc.CompleteInput{
			AddressID:        payload.AddressID,
			ShippingMethodID: payload.ShippingMethodID,
			PromoCode:        payload.PromoCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, completeResponse{
			Order:       newOrderResponse(result.Order),
			Payment:     newPaymentResponse(result.Payment),
			CheckoutURL: result.CheckoutURL,
		})
	}
}

type promoRequest struct {
	Code string `json:"code" validate:"required,min=1"`
}

type completeRequest struct {
	AddressID        uuid.UUID `json:"addressId" validate:"required"`
	ShippingMethodID uuid.UUID `json:"shippingMethodId" validate:"required"`
	PromoCode        *string   `json:"promoCode,omitempty"`
}

type summaryResponse struct {
	Items           []pricing.PricedItem     `json:"items"`
	SubtotalCents   int                      `json:"subtotalCents"`
	TaxCents        int                      `json:"taxCents"`
	ShippingCents   int                      `json:"shippingCents"`
	DiscountCents   int                      `json:"discountCents"`
	TotalCents      int                      `json:"totalCents"`
	Currency        string                   `json:"currency"`
	Addresses       []addressResponse        `json:"addresses"`
	ShippingMethods []shippingMethodResponse `json:"shippingMethods"`
	SuggestedPromo  *promo.Code              `json:"suggestedPromo,omitempty"`
}

type completeResponse struct {
	Order       orderResponse    `json:"order"`
	Payment     *paymentResponse `json:"payment,omitempty"`
	CheckoutURL *string          `json:"checkoutUrl,omitempty"`
}
