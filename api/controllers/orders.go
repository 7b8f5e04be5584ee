package controllers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/api/middleware"
	"github.com/shopstack-dev/shopstack-backend/api/responses"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

type orderReader interface {
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

// ListOrders handles the authenticated user's order history, newest first.
func ListOrders(repo orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order repository unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := repo.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders"))
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetOrder handles a single order lookup scoped to the authenticated user.
func GetOrder(repo orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order repository unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := repo.FindForUser(r.Context(), orderID, userID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order"))
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	Status           string              `json:"status"`
	Currency         string              `json:"currency"`
	SubtotalCents    int                 `json:"subtotalCents"`
	TaxCents         int                 `json:"taxCents"`
	ShippingCents    int                 `json:"shippingCents"`
	DiscountCents    int                 `json:"discountCents"`
	TotalCents       int                 `json:"totalCents"`
	PromoCode        *string             `json:"promoCode,omitempty"`
	AddressID        uuid.UUID           `json:"addressId"`
	ShippingMethodID uuid.UUID           `json:"shippingMethodId"`
	Items            []orderItemResponse `json:"items"`
	Payment          *paymentResponse    `json:"payment,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

type orderItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Title          string     `json:"title"`
	ImageURL       *string    `json:"imageUrl,omitempty"`
	UnitPriceCents int        `json:"unitPriceCents"`
	Qty            int        `json:"qty"`
	LineTotalCents int        `json:"lineTotalCents"`
}

type paymentResponse struct {
	ID                    uuid.UUID `json:"id"`
	Provider              string    `json:"provider"`
	Status                string    `json:"status"`
	AmountCents           int       `json:"amountCents"`
	Currency              string    `json:"currency"`
	StripePaymentIntentID *string   `json:"stripePaymentIntentId,omitempty"`
	StripeSessionID       *string   `json:"stripeSessionId,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Title:          item.Title,
			ImageURL:       item.ImageURL,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			LineTotalCents: item.LineTotalCents,
		})
	}

	resp := orderResponse{
		ID:               order.ID,
		Status:           order.Status.String(),
		Currency:         order.Currency,
		SubtotalCents:    order.SubtotalCents,
		TaxCents:         order.TaxCents,
		ShippingCents:    order.ShippingCents,
		DiscountCents:    order.DiscountCents,
		TotalCents:       order.TotalCents,
		PromoCode:        order.PromoCode,
		AddressID:        order.AddressID,
		ShippingMethodID: order.ShippingMethodID,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
	if order.Payment != nil {
		resp.Payment = newPaymentResponse(order.Payment)
	}
	return resp
}

func newPaymentResponse(payment *models.Payment) *paymentResponse {
	if payment == nil {
		return nil
	}
	return &paymentResponse{
		ID:                    payment.ID,
		Provider:              payment.Provider,
		Status:                payment.Status.String(),
		AmountCents:           payment.AmountCents,
		Currency:              payment.Currency,
		StripePaymentIntentID: payment.StripePaymentIntentID,
		StripeSessionID:       payment.StripeSessionID,
	}
}
