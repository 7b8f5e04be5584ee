package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

// Payment records the settlement state for an order. OrderID carries a
// unique index so webhook retries upsert instead of duplicating rows.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Provider              string              `gorm:"column:provider;not null;default:'stripe'"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	StripeSessionID       *string             `gorm:"column:stripe_session_id"`
	AmountCents           int                 `gorm:"column:amount_cents;not null"`
	Currency              string              `gorm:"column:currency;not null;default:'usd'"`
	Status                enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
