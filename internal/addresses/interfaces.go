package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
)

// Repository defines persistence operations for saved addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, address *models.Address) (*models.Address, error)
	Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	MarkDefault(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewAddressInput captures the fields accepted when saving an address.
type NewAddressInput struct {
	Name       string
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
	IsDefault  bool
}

// UpdateAddressInput carries the fields of a partial address edit. Nil fields
// are left untouched.
type UpdateAddressInput struct {
	Name       *string
	Line1      *string
	Line2      *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	IsDefault  *bool
}

// Service manages a user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input NewAddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateAddressInput) (*models.Address, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}
