package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/shopstack-dev/shopstack-backend/internal/events"
	"github.com/shopstack-dev/shopstack-backend/internal/orders"
	"github.com/shopstack-dev/shopstack-backend/internal/payments"
	"github.com/shopstack-dev/shopstack-backend/pkg/db/models"
	"github.com/shopstack-dev/shopstack-backend/pkg/enums"
	pkgerrors "github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	OrdersRepo        orders.Repository
	Events            events.Emitter
	TransactionRunner txRunner
}

// Service applies Stripe webhook events to order state. Handlers are written
// to be re-runnable: a duplicate delivery converges on the same final state.
type Service struct {
	orders   orders.Repository
	events   events.Emitter
	txRunner txRunner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		orders:   params.OrdersRepo,
		events:   params.Events,
		txRunner: params.TransactionRunner,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.settleOrder(ctx, session)
	case stripe.EventTypeCheckoutSessionExpired:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.expireOrder(ctx, session)
	default:
		return nil
	}
}

// settleOrder marks the order paid and upserts its payment record.
func (s *Service) settleOrder(ctx context.Context, session *stripe.CheckoutSession) error {
	orderID, err := orderIDFromSession(session)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		emitter := s.events.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for session")
			}
			return err
		}

		// Redelivery after a successful settlement is a no-op.
		if order.Status == enums.OrderStatusPaid {
			return nil
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid); err != nil {
			return err
		}

		// The provider's amount_total is authoritative for what was actually
		// charged; the quoted order total only stands in when the event
		// omits it.
		amount := order.TotalCents
		if session.AmountTotal > 0 {
			amount = int(session.AmountTotal)
		}

		payment := &models.Payment{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Provider:    "stripe",
			AmountCents: amount,
			Currency:    order.Currency,
			Status:      enums.PaymentStatusSucceeded,
		}
		if session.ID != "" {
			sessionID := session.ID
			payment.StripeSessionID = &sessionID
		}
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			intentID := session.PaymentIntent.ID
			payment.StripePaymentIntentID = &intentID
		}
		if err := repo.UpsertPayment(ctx, payment); err != nil {
			return err
		}

		if err := emitter.Emit(ctx, enums.EventTypePaymentSucceeded, &order.ID, &order.UserID, sessionEventPayload(session)); err != nil {
			return err
		}
		return emitter.Emit(ctx, enums.EventTypeOrderPaid, &order.ID, &order.UserID, sessionEventPayload(session))
	})
}

// expireOrder cancels an order whose hosted session lapsed unpaid.
func (s *Service) expireOrder(ctx context.Context, session *stripe.CheckoutSession) error {
	orderID, err := orderIDFromSession(session)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		emitter := s.events.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for session")
			}
			return err
		}

		// Only pending orders can expire; a settled order stays settled.
		if order.Status != enums.OrderStatusPending {
			return nil
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCanceled); err != nil {
			return err
		}
		return emitter.Emit(ctx, enums.EventTypeOrderCanceled, &order.ID, &order.UserID, sessionEventPayload(session))
	})
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}
	return &session, nil
}

func orderIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	raw := session.Metadata[payments.OrderIDMetadataKey]
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from session metadata")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in session metadata")
	}
	return orderID, nil
}

func sessionEventPayload(session *stripe.CheckoutSession) map[string]any {
	payload := map[string]any{"sessionId": session.ID}
	if session.PaymentIntent != nil {
		payload["paymentIntentId"] = session.PaymentIntent.ID
	}
	return payload
}
