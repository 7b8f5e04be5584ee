package addresses

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

type service struct {
	tx   txRunner
	repo Repository
}

// NewService builds the address book service.
func NewService(tx txRunner, repo Repository) Service {
	return &service{tx: tx, repo: repo}
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing addresses")
	}
	return addresses, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input NewAddressInput) (*models.Address, error) {
	country := strings.TrimSpace(input.Country)
	if country == "" {
		country = "US"
	}

	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      input.Line2,
		City:       strings.TrimSpace(input.City),
		State:      input.State,
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    country,
		IsDefault:  input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		// The first saved address always becomes the default.
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		_, err = repo.Create(ctx, address)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating address")
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input UpdateAddressInput) (*models.Address, error) {
	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Line1 != nil {
		updates["line1"] = strings.TrimSpace(*input.Line1)
	}
	if input.Line2 != nil {
		updates["line2"] = *input.Line2
	}
	if input.City != nil {
		updates["city"] = strings.TrimSpace(*input.City)
	}
	if input.State != nil {
		updates["state"] = *input.State
	}
	if input.PostalCode != nil {
		updates["postal_code"] = strings.TrimSpace(*input.PostalCode)
	}
	if input.Country != nil {
		updates["country"] = strings.TrimSpace(*input.Country)
	}
	if input.IsDefault != nil {
		updates["is_default"] = *input.IsDefault
	}
	if len(updates) == 0 {
		return nil, errors.New(errors.CodeValidation, "no fields to update")
	}

	var updated *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Promoting an address to default demotes the rest first.
		if input.IsDefault != nil && *input.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, addressID, userID, updates); err != nil {
			return err
		}
		address, err := repo.FindForUser(ctx, addressID, userID)
		if err != nil {
			return err
		}
		updated = address
		return nil
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeAddressNotFound, "address not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "updating address")
	}
	return updated, nil
}

func (s *service) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		return repo.MarkDefault(ctx, addressID, userID)
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeAddressNotFound, "address not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "setting default address")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if err := s.repo.Delete(ctx, addressID, userID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeAddressNotFound, "address not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "deleting address")
	}
	return nil
}
