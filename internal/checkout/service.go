package checkout

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
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
	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
	"github.com/shopstack-dev/shopstack-backend/pkg/logger"
)

type service struct {
	tx        txRunner
	carts     cartStore
	pricer    cartPricer
	addresses addressFinder
	shipping  shippingFinder
	users     userFinder
	promos    promo.Catalog
	orders    orders.Repository
	events    events.Emitter
	processor payments.Processor
	cfg       config.CheckoutConfig
	log       *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	tx txRunner,
	carts cartStore,
	pricer cartPricer,
	addresses addressFinder,
	shipping shippingFinder,
	users userFinder,
	promos promo.Catalog,
	ordersRepo orders.Repository,
	emitter events.Emitter,
	processor payments.Processor,
	cfg config.CheckoutConfig,
	log *logger.Logger,
) Service {
	return &service{
		tx:        tx,
		carts:     carts,
		pricer:    pricer,
		addresses: addresses,
		shipping:  shipping,
		users:     users,
		promos:    promos,
		orders:    ordersRepo,
		events:    emitter,
		processor: processor,
		cfg:       cfg,
		log:       log,
	}
}

func (s *service) Summary(ctx context.Context, sessionID string, input SummaryInput) (*Summary, error) {
	priced, err := s.pricedCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	shippingCents := 0
	if input.ShippingMethodID != nil {
		method, err := s.shipping.FindActiveByID(ctx, *input.ShippingMethodID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New(errors.CodeShippingNotFound, "shipping method not found")
			}
			return nil, errors.Wrap(errors.CodeInternal, err, "loading shipping method")
		}
		shippingCents = method.RateCents
	}

	promoCode, err := s.resolvePromo(input.PromoCode)
	if err != nil {
		return nil, err
	}

	return s.buildSummary(priced, shippingCents, promoCode), nil
}

func (s *service) Complete(ctx context.Context, sessionID string, userID uuid.UUID, input CompleteInput) (*CompleteResult, error) {
	// Preconditions are checked in a fixed order so clients get a stable
	// first failure: empty cart, then address, shipping, promo.
	priced, err := s.pricedCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(priced.Items) == 0 {
		return nil, errors.New(errors.CodeCartEmpty, "cart is empty")
	}

	address, err := s.addresses.FindForUser(ctx, input.AddressID, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeAddressNotFound, "address not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading address")
	}

	method, err := s.shipping.FindActiveByID(ctx, input.ShippingMethodID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeShippingNotFound, "shipping method not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading shipping method")
	}

	promoCode, err := s.resolvePromo(input.PromoCode)
	if err != nil {
		return nil, err
	}

	summary := s.buildSummary(priced, method.RateCents, promoCode)
	hosted := s.processor.Hosted()

	// The buyer's email rides along on the confirmation event. A missing user
	// row is tolerated: the event is queued without a recipient.
	var email *string
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, userID); err == nil {
			email = &user.Email
		}
	}

	order := &models.Order{
		ID:               uuid.New(),
		UserID:           userID,
		AddressID:        address.ID,
		ShippingMethodID: method.ID,
		Status:           enums.OrderStatusPending,
		Currency:         summary.Currency,
		SubtotalCents:    summary.SubtotalCents,
		TaxCents:         summary.TaxCents,
		ShippingCents:    summary.ShippingCents,
		DiscountCents:    summary.DiscountCents,
		TotalCents:       summary.TotalCents,
		PromoCode:        summary.PromoCode,
	}
	if !hosted {
		order.Status = enums.OrderStatusPaid
	}

	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		emitter := s.events.WithTx(tx)

		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateOrderItems(ctx, orderItems(order.ID, priced.Items)); err != nil {
			return err
		}
		if err := emitter.Emit(ctx, enums.EventTypeOrderCreated, &order.ID, &userID, orderEventPayload(order)); err != nil {
			return err
		}
		if err := emitter.Emit(ctx, enums.EventTypeOrderConfirmationEmail, &order.ID, &userID, confirmationEmailPayload(order, email)); err != nil {
			return err
		}

		// Without a hosted provider the order settles inside the same
		// transaction as its creation.
		if !hosted {
			intent := payments.SimulatedIntentID
			payment = &models.Payment{
				ID:                    uuid.New(),
				OrderID:               order.ID,
				Provider:              s.processor.Name(),
				StripePaymentIntentID: &intent,
				AmountCents:           order.TotalCents,
				Currency:              order.Currency,
				Status:                enums.PaymentStatusSucceeded,
			}
			if err := repo.UpsertPayment(ctx, payment); err != nil {
				return err
			}
			if err := emitter.Emit(ctx, enums.EventTypeOrderPaid, &order.ID, &userID, orderEventPayload(order)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finalizing order")
	}

	if !hosted {
		s.afterFinalize(ctx, sessionID, userID)
		return &CompleteResult{Order: order, Payment: payment}, nil
	}

	session, err := s.processor.CreateHostedSession(ctx, payments.SessionInput{
		OrderID:    order.ID,
		Currency:   order.Currency,
		TotalCents: order.TotalCents,
		Items:      sessionLineItems(priced.Items),
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		s.cancelOrder(ctx, order, userID)
		return nil, errors.Wrap(errors.CodePaymentFailed, err, "opening hosted payment session")
	}

	payment = &models.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		Provider:        s.processor.Name(),
		StripeSessionID: &session.SessionID,
		AmountCents:     order.TotalCents,
		Currency:        order.Currency,
		Status:          enums.PaymentStatusPending,
	}
	if err := s.orders.UpsertPayment(ctx, payment); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording pending payment")
	}

	s.afterFinalize(ctx, sessionID, userID)
	return &CompleteResult{Order: order, Payment: payment, CheckoutURL: &session.URL}, nil
}

// resolvePromo looks up the shopper's promo selection. A nil or blank code
// means no promotion was applied; only a non-empty code that fails to
// resolve is an error.
func (s *service) resolvePromo(code *string) (*promo.Code, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	return s.promos.Resolve(*code)
}

// cancelOrder rolls a pending order to canceled after the payment provider
// refused to open a session.
func (s *service) cancelOrder(ctx context.Context, order *models.Order, userID uuid.UUID) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		emitter := s.events.WithTx(tx)
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCanceled); err != nil {
			return err
		}
		return emitter.Emit(ctx, enums.EventTypeOrderCanceled, &order.ID, &userID, orderEventPayload(order))
	})
	if err != nil && s.log != nil {
		s.log.Error(s.log.WithField(ctx, "order_id", order.ID.String()), "canceling order after payment failure", err)
	}
}

// afterFinalize performs best-effort session cleanup. Failures are logged and
// never surfaced: the order is already committed.
func (s *service) afterFinalize(ctx context.Context, sessionID string, userID uuid.UUID) {
	var errs error
	if err := s.carts.SetUser(ctx, sessionID, userID.String()); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil && s.log != nil {
		s.log.Warn(s.log.WithField(ctx, "session_id", sessionID), "post-checkout cart cleanup incomplete: "+errs.Error())
	}
}

func (s *service) pricedCart(ctx context.Context, sessionID string) (*pricing.PricedCart, error) {
	doc, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading cart")
	}
	lines := cart.Normalize(doc.Items)
	items := make([]pricing.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, pricing.Item{ProductID: line.ProductID, Qty: line.Qty})
	}
	priced, err := s.pricer.PriceCart(ctx, items)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "pricing cart")
	}
	return priced, nil
}

func (s *service) buildSummary(priced *pricing.PricedCart, shippingCents int, promoCode *promo.Code) *Summary {
	subtotal := priced.SubtotalCents
	tax := pricing.Tax(subtotal)
	discount := promo.Discount(promoCode, subtotal, shippingCents)

	total := subtotal + tax + shippingCents - discount
	if total < 0 {
		total = 0
	}

	summary := &Summary{
		Items:         priced.Items,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shippingCents,
		DiscountCents: discount,
		TotalCents:    total,
		Currency:      priced.Currency,
	}
	if promoCode != nil {
		code := promoCode.Code
		summary.PromoCode = &code
	}
	return summary
}

func orderItems(orderID uuid.UUID, items []pricing.PricedItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		var productID *uuid.UUID
		if id, err := uuid.Parse(item.ProductID); err == nil {
			pid := id
			productID = &pid
		}
		out = append(out, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      productID,
			Title:          item.Title,
			ImageURL:       item.ImageURL,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return out
}

func sessionLineItems(items []pricing.PricedItem) []payments.LineItem {
	out := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, payments.LineItem{
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
		})
	}
	return out
}

func confirmationEmailPayload(order *models.Order, email *string) map[string]any {
	payload := map[string]any{
		"orderId":    order.ID.String(),
		"totalCents": order.TotalCents,
	}
	if email != nil {
		payload["email"] = *email
	} else {
		payload["email"] = nil
	}
	return payload
}

func orderEventPayload(order *models.Order) map[string]any {
	return map[string]any{
		"orderId":    order.ID.String(),
		"status":     order.Status.String(),
		"totalCents": order.TotalCents,
		"currency":   order.Currency,
	}
}
