package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrPaymentNotFound    = errors.New("payment record not found")
	ErrNotBookable        = errors.New("event is not open for booking")
	ErrEventExpired       = errors.New("event date has already passed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedWebhook   = errors.New("malformed webhook payload")
)

// InsufficientSeatsError reports the exact remaining count so the caller can
// tell the user what is still available.
type InsufficientSeatsError struct {
	Remaining int
	Requested int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats: %d remaining, %d requested", e.Remaining, e.Requested)
}

// ShouldRefundError means the gateway charged the payer but the seats could
// not be committed. It carries enough for an operator or downstream process
// to issue the refund; this must never be conflated with a plain validation
// failure.
type ShouldRefundError struct {
	Reference string
	Amount    decimal.Decimal
}

func (e *ShouldRefundError) Error() string {
	return fmt.Sprintf("payment %s of %s succeeded at the gateway but seats could not be committed; refund required", e.Reference, e.Amount.StringFixed(2))
}
