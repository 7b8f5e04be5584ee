package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
)

// Repository defines persistence operations for shipping methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.ShippingMethod, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
	Create(ctx context.Context, method *models.ShippingMethod) (*models.ShippingMethod, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
