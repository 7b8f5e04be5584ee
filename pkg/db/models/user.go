package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

// User is a registered shopper.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Name      *string        `gorm:"column:name"`
	Role      enums.UserRole `gorm:"column:role;not null;default:'customer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
