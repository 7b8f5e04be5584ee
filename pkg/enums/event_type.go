package enums

import "fmt"

// EventType names the domain events recorded on the events table.
type EventType string

const (
	EventTypeOrderCreated           EventType = "order.created"
	EventTypeOrderPaid              EventType = "order.paid"
	EventTypeOrderCanceled          EventType = "order.canceled"
	EventTypePaymentSucceeded       EventType = "payment.succeeded"
	EventTypeOrderConfirmationEmail EventType = "order.confirmation_email"
)

var validEventTypes = []EventType{
	EventTypeOrderCreated,
	EventTypeOrderPaid,
	EventTypeOrderCanceled,
	EventTypePaymentSucceeded,
	EventTypeOrderConfirmationEmail,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
