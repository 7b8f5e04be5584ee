package checkout

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/internal/cart"
	"github.com/shopstack-dev/shopstack-backend/internal/events"
	"github.com/shopstack-dev/shopstack-backend/internal/orders"
	"github.com/shopstack-dev/shopstack-backend/internal/payments"
	"github.com/shopstack-dev/shopstack-backend/internal/pricing"
	"github.com/shopstack-dev/shopstack-backend/internal/promo"
	"github.com/shopstack-dev/shopstack-backend/pkg/config"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

// --- test doubles -----------------------------------------------------------

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

type memoryCartStore struct {
	docs    map[string]*cart.Document
	cleared []string
	users   map[string]string
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{docs: map[string]*cart.Document{}, users: map[string]string{}}
}

func (m *memoryCartStore) Get(ctx context.Context, sessionID string) (*cart.Document, error) {
	if doc, ok := m.docs[sessionID]; ok {
		return doc, nil
	}
	return &cart.Document{Items: []cart.RawLine{}}, nil
}

func (m *memoryCartStore) Clear(ctx context.Context, sessionID string) error {
	delete(m.docs, sessionID)
	m.cleared = append(m.cleared, sessionID)
	return nil
}

func (m *memoryCartStore) SetUser(ctx context.Context, sessionID, userID string) error {
	m.users[sessionID] = userID
	return nil
}

type catalogPricer struct {
	products map[string]models.Product
}

func (c *catalogPricer) PriceCart(ctx context.Context, items []pricing.Item) (*pricing.PricedCart, error) {
	priced := &pricing.PricedCart{Currency: "usd"}
	for _, item := range items {
		line := pricing.PricedItem{ProductID: item.ProductID, Title: "Product", Currency: "usd", Qty: item.Qty}
		if product, ok := c.products[item.ProductID]; ok {
			line.Title = product.Title
			line.UnitPriceCents = product.PriceCents
			line.ImageURL = product.ImageURL
		}
		line.LineTotalCents = line.UnitPriceCents * line.Qty
		priced.SubtotalCents += line.LineTotalCents
		priced.Items = append(priced.Items, line)
	}
	return priced, nil
}

type stubAddressFinder struct {
	addresses map[uuid.UUID]*models.Address
}

func (s *stubAddressFinder) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	if addr, ok := s.addresses[id]; ok && addr.UserID == userID {
		return addr, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubShippingFinder struct {
	methods map[uuid.UUID]*models.ShippingMethod
}

func (s *stubShippingFinder) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error) {
	if method, ok := s.methods[id]; ok {
		return method, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubUserFinder struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeProcessor struct {
	hosted  bool
	session *payments.HostedSession
	err     error
	calls   int
}

func (f *fakeProcessor) Name() string { return "stripe" }
func (f *fakeProcessor) Hosted() bool { return f.hosted }

func (f *fakeProcessor) CreateHostedSession(ctx context.Context, input payments.SessionInput) (*payments.HostedSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// --- fixture ---------------------------------------------------------------

type fixture struct {
	svc       Service
	db        *gorm.DB
	carts     *memoryCartStore
	processor *fakeProcessor
	userID    uuid.UUID
	addressID uuid.UUID
	methodID  uuid.UUID
	productID uuid.UUID
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS orders (
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
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
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
);`,
		`CREATE TABLE IF NOT EXISTS payments (
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
);`,
		`CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  order_id TEXT,
  user_id TEXT,
  payload TEXT,
  created_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(schema).Error)
	}

	return db
}

func newFixture(t *testing.T, processor *fakeProcessor) *fixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	f := &fixture{
		db:        db,
		carts:     newMemoryCartStore(),
		processor: processor,
		userID:    uuid.New(),
		addressID: uuid.New(),
		methodID:  uuid.New(),
		productID: uuid.New(),
	}

	pricer := &catalogPricer{products: map[string]models.Product{
		f.productID.String(): {ID: f.productID, Title: "Mug", PriceCents: 1200, Currency: "usd"},
	}}
	addressStub := &stubAddressFinder{addresses: map[uuid.UUID]*models.Address{
		f.addressID: {ID: f.addressID, UserID: f.userID, Name: "Home"},
	}}
	shippingStub := &stubShippingFinder{methods: map[uuid.UUID]*models.ShippingMethod{
		f.methodID: {ID: f.methodID, Name: "Standard", RateCents: 500, IsActive: true},
	}}
	userStub := &stubUserFinder{users: map[uuid.UUID]*models.User{
		f.userID: {ID: f.userID, Email: "buyer@example.com"},
	}}

	f.svc = NewService(
		&gormTxRunner{db: db},
		f.carts,
		pricer,
		addressStub,
		shippingStub,
		userStub,
		promo.DefaultCatalog(),
		orders.NewRepository(db),
		events.NewEmitter(db),
		processor,
		config.CheckoutConfig{SuccessURL: "https://shop/success", CancelURL: "https://shop/cancel"},
		nil,
	)
	return f
}

func (f *fixture) fillCart(qty int) {
	f.carts.docs["sess-1"] = &cart.Document{Items: []cart.RawLine{
		{ProductID: f.productID.String(), Qty: cart.FlexQty(qty)},
	}}
}

func (f *fixture) completeInput() CompleteInput {
	return CompleteInput{AddressID: f.addressID, ShippingMethodID: f.methodID}
}

func strPtr(s string) *string { return &s }

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

// --- summary ---------------------------------------------------------------

func TestSummaryWithPercentagePromo(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(2) // 2400

	summary, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{
		ShippingMethodID: &f.methodID,
		PromoCode:        strPtr("SAVE10"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2400, summary.SubtotalCents)
	assert.Equal(t, 192, summary.TaxCents)
	assert.Equal(t, 500, summary.ShippingCents)
	assert.Equal(t, 240, summary.DiscountCents)
	assert.Equal(t, 2852, summary.TotalCents)
	require.NotNil(t, summary.PromoCode)
	assert.Equal(t, "SAVE10", *summary.PromoCode)
}

func TestSummaryWithoutSelections(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1) // 1200

	summary, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{})
	require.NoError(t, err)

	assert.Equal(t, 1200, summary.SubtotalCents)
	assert.Equal(t, 96, summary.TaxCents)
	assert.Equal(t, 0, summary.ShippingCents)
	assert.Equal(t, 0, summary.DiscountCents)
	assert.Equal(t, 1296, summary.TotalCents)
}

func TestSummaryRejectsUnknownPromo(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	_, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{PromoCode: strPtr("NOPE")})
	assertCode(t, err, pkgerrors.CodeInvalidPromo)
}

func TestSummaryRejectsUnknownShipping(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)
	bogus := uuid.New()

	_, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{ShippingMethodID: &bogus})
	assertCode(t, err, pkgerrors.CodeShippingNotFound)
}

// --- complete: precondition ladder -----------------------------------------

func TestCompleteEmptyCart(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})

	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, f.completeInput())
	assertCode(t, err, pkgerrors.CodeCartEmpty)
}

func TestCompleteEmptyCartWinsOverBadAddress(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})

	input := f.completeInput()
	input.AddressID = uuid.New()
	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, input)
	assertCode(t, err, pkgerrors.CodeCartEmpty)
}

func TestCompleteUnknownAddress(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	input := f.completeInput()
	input.AddressID = uuid.New()
	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, input)
	assertCode(t, err, pkgerrors.CodeAddressNotFound)
}

func TestCompleteAddressOfAnotherUser(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	_, err := f.svc.Complete(context.Background(), "sess-1", uuid.New(), f.completeInput())
	assertCode(t, err, pkgerrors.CodeAddressNotFound)
}

func TestCompleteUnknownShipping(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	input := f.completeInput()
	input.ShippingMethodID = uuid.New()
	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, input)
	assertCode(t, err, pkgerrors.CodeShippingNotFound)
}

func TestCompleteInvalidPromo(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	input := f.completeInput()
	input.PromoCode = strPtr("EXPIRED")
	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, input)
	assertCode(t, err, pkgerrors.CodeInvalidPromo)

	// Nothing persisted on a failed precondition.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCompleteBlankPromoMeansNoPromo(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(2) // 2400

	// A supplied-but-blank code is the same as no code at all.
	input := f.completeInput()
	input.PromoCode = strPtr("  ")
	result, err := f.svc.Complete(context.Background(), "sess-1", f.userID, input)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Order.DiscountCents)
	assert.Nil(t, result.Order.PromoCode)
	assert.Equal(t, 3092, result.Order.TotalCents)
}

func TestSummaryBlankPromoMeansNoPromo(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1)

	summary, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{PromoCode: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.DiscountCents)
	assert.Nil(t, summary.PromoCode)
}

// --- complete: simulated settlement ----------------------------------------

func TestCompleteSimulatedSettlesImmediately(t *testing.T) {
	f := newFixture(t, &fakeProcessor{hosted: false})
	f.fillCart(2) // 2400

	result, err := f.svc.Complete(context.Background(), "sess-1", f.userID, f.completeInput())
	require.NoError(t, err)

	require.NotNil(t, result.Order)
	assert.Equal(t, enums.OrderStatusPaid, result.Order.Status)
	assert.Equal(t, 2400, result.Order.SubtotalCents)
	assert.Equal(t, 192, result.Order.TaxCents)
	assert.Equal(t, 500, result.Order.ShippingCents)
	assert.Equal(t, 3092, result.Order.TotalCents)
	assert.Nil(t, result.CheckoutURL)

	require.NotNil(t, result.Payment)
	assert.Equal(t, enums.PaymentStatusSucceeded, result.Payment.Status)
	require.NotNil(t, result.Payment.StripePaymentIntentID)
	assert.Equal(t, payments.SimulatedIntentID, *result.Payment.StripePaymentIntentID)

	// Item snapshot persisted.
	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", result.Order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "Mug", items[0].Title)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, 2400, items[0].LineTotalCents)

	// Cart cleared and associated with the buyer.
	assert.Contains(t, f.carts.cleared, "sess-1")
	assert.Equal(t, f.userID.String(), f.carts.users["sess-1"])

	// Events recorded alongside the order.
	var eventTypes []string
	require.NoError(t, f.db.Model(&models.Event{}).Order("created_at").Pluck("type", &eventTypes).Error)
	assert.Contains(t, eventTypes, enums.EventTypeOrderCreated.String())
	assert.Contains(t, eventTypes, enums.EventTypeOrderPaid.String())

	// Confirmation email queued with the buyer's address.
	var emailEvent models.Event
	require.NoError(t, f.db.Where("type = ?", enums.EventTypeOrderConfirmationEmail.String()).First(&emailEvent).Error)
	assert.Contains(t, string(emailEvent.Payload), "buyer@example.com")
}

func TestCompleteTotalNeverNegative(t *testing.T) {
	f := newFixture(t, &fakeProcessor{})
	f.fillCart(1) // 1200 subtotal, tax 96, shipping 500

	// A fixed promo larger than the order caps at subtotal+shipping; tax keeps
	// the total positive, so force the floor with a custom catalog.
	summary, err := f.svc.Summary(context.Background(), "sess-1", SummaryInput{
		ShippingMethodID: &f.methodID,
		PromoCode:        strPtr("FREESHIP"),
	})
	require.NoError(t, err)
	assert.Equal(t, 500, summary.DiscountCents)
	assert.Equal(t, 1296, summary.TotalCents)
	assert.GreaterOrEqual(t, summary.TotalCents, 0)
}

// --- complete: hosted payment ----------------------------------------------

func TestCompleteHostedReturnsCheckoutURL(t *testing.T) {
	processor := &fakeProcessor{
		hosted:  true,
		session: &payments.HostedSession{SessionID: "cs_123", URL: "https://checkout.stripe.com/cs_123"},
	}
	f := newFixture(t, processor)
	f.fillCart(2)

	result, err := f.svc.Complete(context.Background(), "sess-1", f.userID, f.completeInput())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, result.Order.Status)
	require.NotNil(t, result.CheckoutURL)
	assert.Equal(t, "https://checkout.stripe.com/cs_123", *result.CheckoutURL)
	assert.Equal(t, 1, processor.calls)

	require.NotNil(t, result.Payment)
	assert.Equal(t, enums.PaymentStatusPending, result.Payment.Status)
	require.NotNil(t, result.Payment.StripeSessionID)
	assert.Equal(t, "cs_123", *result.Payment.StripeSessionID)

	assert.Contains(t, f.carts.cleared, "sess-1")
}

func TestCompleteHostedProviderFailureCancelsOrder(t *testing.T) {
	processor := &fakeProcessor{hosted: true, err: stderrors.New("stripe down")}
	f := newFixture(t, processor)
	f.fillCart(1)

	_, err := f.svc.Complete(context.Background(), "sess-1", f.userID, f.completeInput())
	assertCode(t, err, pkgerrors.CodePaymentFailed)

	// The order exists but was rolled to canceled.
	var order models.Order
	require.NoError(t, f.db.First(&order).Error)
	assert.Equal(t, enums.OrderStatusCanceled, order.Status)

	// No payment row and the cart survives for a retry.
	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.carts.cleared)
}
