package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  address_id TEXT NOT NULL,
  shipping_method_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'usd',
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  promo_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  title TEXT NOT NULL,
  image_url TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  provider TEXT NOT NULL DEFAULT 'stripe',
  stripe_payment_intent_id TEXT,
  stripe_session_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(payments).Error)

	return db
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:               uuid.New(),
		UserID:           userID,
		AddressID:        uuid.New(),
		ShippingMethodID: uuid.New(),
		Status:           enums.OrderStatusPending,
		Currency:         "usd",
		SubtotalCents:    2400,
		TaxCents:         192,
		ShippingCents:    500,
		TotalCents:       3092,
	}
	created, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestCreateOrderWithItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, repo, userID)

	items := []models.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, Title: "Mug", UnitPriceCents: 1200, Qty: 2, LineTotalCents: 2400},
	}
	require.NoError(t, repo.CreateOrderItems(ctx, items))

	found, err := repo.FindForUser(ctx, order.ID, userID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Mug", found.Items[0].Title)
	assert.Equal(t, 3092, found.TotalCents)
}

func TestFindForUserScopesByOwner(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New())

	_, err := repo.FindForUser(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	seedOrder(t, repo, userID)
	seedOrder(t, repo, userID)
	seedOrder(t, repo, uuid.New())

	list, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New())
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
}

func TestUpsertPaymentIsIdempotentPerOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New())

	intent := "pi_123"
	first := &models.Payment{
		ID:                    uuid.New(),
		OrderID:               order.ID,
		Provider:              "stripe",
		StripePaymentIntentID: &intent,
		AmountCents:           3092,
		Currency:              "usd",
		Status:                enums.PaymentStatusPending,
	}
	require.NoError(t, repo.UpsertPayment(ctx, first))

	second := &models.Payment{
		ID:                    uuid.New(),
		OrderID:               order.ID,
		Provider:              "stripe",
		StripePaymentIntentID: &intent,
		AmountCents:           3092,
		Currency:              "usd",
		Status:                enums.PaymentStatusSucceeded,
	}
	require.NoError(t, repo.UpsertPayment(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "retries must not duplicate payments")

	payment, err := repo.FindPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, payment.Status)
}
