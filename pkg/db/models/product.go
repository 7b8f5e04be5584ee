package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the canonical catalog listing.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Title       string     `gorm:"column:title;not null"`
	Description *string    `gorm:"column:description"`
	PriceCents  int        `gorm:"column:price_cents;not null"`
	Currency    string     `gorm:"column:currency;not null;default:'usd'"`
	ImageURL    *string    `gorm:"column:image_url"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
