package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingMethod is a selectable delivery option with a flat rate.
type ShippingMethod struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	RateCents int       `gorm:"column:rate_cents;not null"`
	EtaDays   *int      `gorm:"column:eta_days"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
