package addresses

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func setupAddressesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  city TEXT NOT NULL,
  state TEXT,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'US',
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupAddressesTestDB(t)
	return NewService(&gormTxRunner{db: db}, NewRepository(db)), db
}

func sampleInput(name string, isDefault bool) NewAddressInput {
	return NewAddressInput{
		Name:       name,
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		IsDefault:  isDefault,
	}
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := svc.Create(ctx, userID, sampleInput("Home", false))
	require.NoError(t, err)
	assert.True(t, created.IsDefault, "first address should default")
}

func TestNewDefaultFlipsPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, sampleInput("Home", false))
	require.NoError(t, err)

	second, err := svc.Create(ctx, userID, sampleInput("Office", true))
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	defaults := 0
	for _, addr := range list {
		if addr.IsDefault {
			defaults++
			assert.Equal(t, second.ID, addr.ID)
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default per user")
	_ = first
}

func TestSetDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, sampleInput("Home", false))
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, sampleInput("Office", true))
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(ctx, userID, first.ID))

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	for _, addr := range list {
		if addr.ID == first.ID {
			assert.True(t, addr.IsDefault)
		}
		if addr.ID == second.ID {
			assert.False(t, addr.IsDefault)
		}
	}
}

func TestUpdateFlipsDefaultAndEditsFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, sampleInput("Home", true))
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, sampleInput("Office", false))
	require.NoError(t, err)

	city := "Shelbyville"
	makeDefault := true
	updated, err := svc.Update(ctx, userID, second.ID, UpdateAddressInput{
		City:      &city,
		IsDefault: &makeDefault,
	})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.City)
	assert.True(t, updated.IsDefault)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	for _, addr := range list {
		if addr.ID == first.ID {
			assert.False(t, addr.IsDefault, "previous default should be demoted")
		}
	}
}

func TestUpdateRejectsEmptyPayload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := svc.Create(ctx, userID, sampleInput("Home", true))
	require.NoError(t, err)

	_, err = svc.Update(ctx, userID, created.ID, UpdateAddressInput{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateScopedToUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, sampleInput("Home", true))
	require.NoError(t, err)

	name := "Hijacked"
	_, err = svc.Update(ctx, uuid.New(), created.ID, UpdateAddressInput{Name: &name})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAddressNotFound, typed.Code())
}

func TestSetDefaultUnknownAddress(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.SetDefault(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAddressNotFound, typed.Code())
}

func TestDeleteScopedToUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	intruder := uuid.New()

	created, err := svc.Create(ctx, owner, sampleInput("Home", true))
	require.NoError(t, err)

	err = svc.Delete(ctx, intruder, created.ID)
	require.Error(t, err)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}
