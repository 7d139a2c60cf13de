package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidAmount           = errors.New("invalid refund amount")
	ErrInvalidState            = errors.New("invalid order state")
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateOrderRef       = errors.New("duplicate order ref")
	ErrGatewayRequest          = errors.New("gateway request failed")
	ErrGatewaySignatureInvalid = errors.New("gateway signature invalid")
	ErrAmountMismatch          = errors.New("notified amount does not match order")
	ErrConcurrentClaimLost     = errors.New("order claimed by another writer")
	ErrIllegalTransition       = errors.New("illegal status transition")
)

// RefundRejectedError is returned when the gateway answered a refund
// request with a business failure. Message is the gateway's reason verbatim.
type RefundRejectedError struct {
	Code    string
	Message string
}

func (e *RefundRejectedError) Error() string {
	return fmt.Sprintf("refund rejected by gateway: %s", e.Message)
}
