package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
	pkgstripe "github.com/shopstack-dev/shopstack-backend/pkg/stripe"
)

// OrderIDMetadataKey links a hosted checkout session back to the order it pays.
const OrderIDMetadataKey = "orderId"

// sessionCreator wraps the Stripe call so the processor can be tested.
type sessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionCreator struct{}

func (stripeSessionCreator) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return checkoutsession.New(params)
}

type stripeProcessor struct {
	sessions sessionCreator
}

// NewStripe returns the hosted-checkout backend built on Stripe Checkout Sessions.
func NewStripe(client *pkgstripe.Client) Processor {
	_ = client // initialization sets the package-level API key
	return &stripeProcessor{sessions: stripeSessionCreator{}}
}

// newStripeWithCreator is the test seam.
func newStripeWithCreator(sessions sessionCreator) Processor {
	return &stripeProcessor{sessions: sessions}
}

func (p *stripeProcessor) Name() string {
	return "stripe"
}

func (p *stripeProcessor) Hosted() bool {
	return true
}

func (p *stripeProcessor) CreateHostedSession(ctx context.Context, input SessionInput) (*HostedSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Items))
	for _, item := range input.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Qty)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(input.Currency),
				UnitAmount: stripe.Int64(int64(item.UnitPriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
	}
	params.AddMetadata(OrderIDMetadataKey, input.OrderID.String())

	session, err := p.sessions.Create(ctx, params)
	if err != nil {
		return nil, errors.Wrap(errors.CodePaymentFailed, err, "creating checkout session")
	}

	return &HostedSession{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}
