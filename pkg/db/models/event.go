package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

// Event is an append-only domain event row written alongside state changes.
type Event struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.EventType `gorm:"column:type;not null;index"`
	OrderID   *uuid.UUID      `gorm:"column:order_id;type:uuid;index"`
	UserID    *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Payload   []byte          `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
