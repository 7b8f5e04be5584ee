package payments

import (
	"context"

	"github.com/shopstack-dev/shopstack-backend/pkg/errors"
)

// SimulatedIntentID marks payments settled without a real provider.
const SimulatedIntentID = "simulated"

type simulated struct{}

// NewSimulated returns the no-provider backend: orders are marked paid
// immediately with a simulated payment record.
func NewSimulated() Processor {
	return simulated{}
}

func (simulated) Name() string {
	return "simulated"
}

func (simulated) Hosted() bool {
	return false
}

func (simulated) CreateHostedSession(ctx context.Context, input SessionInput) (*HostedSession, error) {
	return nil, errors.New(errors.CodeInternal, "simulated backend has no hosted session")
}
