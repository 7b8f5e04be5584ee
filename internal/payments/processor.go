package payments

import (
	"context"

	"github.com/google/uuid"
)

// LineItem is a priced order line forwarded to the payment provider.
type LineItem struct {
	Title          string
	UnitPriceCents int
	Qty            int
}

// SessionInput carries everything needed to open a hosted payment page.
type SessionInput struct {
	OrderID    uuid.UUID
	Currency   string
	TotalCents int
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

// HostedSession points the shopper at an externally hosted payment page.
type HostedSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Processor abstracts the payment backend selected at startup. When Hosted
// reports false the order settles synchronously and CreateHostedSession is
// never called.
type Processor interface {
	Name() string
	Hosted() bool
	CreateHostedSession(ctx context.Context, input SessionInput) (*HostedSession, error)
}
