package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/internal/cart"
	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Get(ctx context.Context, sessionID string) (*cart.Document, error)
	Clear(ctx context.Context, sessionID string) error
	SetUser(ctx context.Context, sessionID, userID string) error
}

type cartPricer interface {
	PriceCart(ctx context.Context, items []pricing.Item) (*pricing.PricedCart, error)
}

type addressFinder interface {
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
}

type shippingFinder interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SummaryInput carries the optional selections for a checkout quote.
type SummaryInput struct {
	ShippingMethodID *uuid.UUID
	PromoCode        *string
}

// CompleteInput carries the required selections for finalizing an order.
type CompleteInput struct {
	AddressID        uuid.UUID
	ShippingMethodID uuid.UUID
	PromoCode        *string
}

// Summary is a priced checkout quote. Nothing is persisted.
type Summary struct {
	Items         []pricing.PricedItem `json:"items"`
	SubtotalCents int                  `json:"subtotalCents"`
	TaxCents      int                  `json:"taxCents"`
	ShippingCents int                  `json:"shippingCents"`
	DiscountCents int                  `json:"discountCents"`
	TotalCents    int                  `json:"totalCents"`
	Currency      string               `json:"currency"`
	PromoCode     *string              `json:"promoCode,omitempty"`
}

// CompleteResult reports the finalized order. CheckoutURL is set only when a
// hosted payment page must collect payment; otherwise the order is already paid.
type CompleteResult struct {
	Order       *models.Order   `json:"order"`
	Payment     *models.Payment `json:"payment,omitempty"`
	CheckoutURL *string         `json:"checkoutUrl,omitempty"`
}

// Service quotes and finalizes checkouts.
type Service interface {
	Summary(ctx context.Context, sessionID string, input SummaryInput) (*Summary, error)
	Complete(ctx context.Context, sessionID string, userID uuid.UUID, input CompleteInput) (*CompleteResult, error)
}
