package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

// Order captures a finalized checkout with a snapshot of its pricing.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID        uuid.UUID         `gorm:"column:address_id;type:uuid;not null"`
	ShippingMethodID uuid.UUID         `gorm:"column:shipping_method_id;type:uuid;not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency         string            `gorm:"column:currency;not null;default:'usd'"`
	SubtotalCents    int               `gorm:"column:subtotal_cents;not null"`
	TaxCents         int               `gorm:"column:tax_cents;not null"`
	ShippingCents    int               `gorm:"column:shipping_cents;not null"`
	DiscountCents    int               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int               `gorm:"column:total_cents;not null"`
	PromoCode        *string           `gorm:"column:promo_code"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment          *Payment          `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
