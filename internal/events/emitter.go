package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

// Emitter appends domain event rows next to the state they describe.
type Emitter interface {
	WithTx(tx *gorm.DB) Emitter
	Emit(ctx context.Context, eventType enums.EventType, orderID, userID *uuid.UUID, payload any) error
}

type emitter struct {
	db *gorm.DB
}

// NewEmitter builds an event emitter bound to the provided DB.
func NewEmitter(db *gorm.DB) Emitter {
	return &emitter{db: db}
}

func (e *emitter) WithTx(tx *gorm.DB) Emitter {
	if tx == nil {
		return e
	}
	return &emitter{db: tx}
}

func (e *emitter) Emit(ctx context.Context, eventType enums.EventType, orderID, userID *uuid.UUID, payload any) error {
	var encoded []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		encoded = data
	}

	event := models.Event{
		ID:      uuid.New(),
		Type:    eventType,
		OrderID: orderID,
		UserID:  userID,
		Payload: encoded,
	}
	return e.db.WithContext(ctx).Create(&event).Error
}
