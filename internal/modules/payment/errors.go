package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrPriceMismatch  = errors.New("price mismatch")
	ErrVerification   = errors.New("callback signature verification failed")
	ErrOrderNotFound  = errors.New("order not found for callback")
	ErrGatewayDecline = errors.New("payment declined by gateway")
	ErrEchoMismatch   = errors.New("callback does not match the order")
)

// PriceMismatchError is returned when the client total differs from the
// recomputed one by more than the tolerance. It matches ErrPriceMismatch
// and ErrValidation.
type PriceMismatchError struct {
	ClientTotal decimal.Decimal
	ServerTotal decimal.Decimal
	Difference  decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch: client %s, server %s, difference %s",
		e.ClientTotal.StringFixed(2), e.ServerTotal.StringFixed(2), e.Difference.StringFixed(2))
}

func (e *PriceMismatchError) Is(target error) bool {
	return target == ErrPriceMismatch || target == ErrValidation
}

// DeclineError carries the gateway response code and a localized reason.
type DeclineError struct {
	Action  string
	RC      string
	Message string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: action=%s rc=%s: %s", e.Action, e.RC, e.Message)
}

func (e *DeclineError) Is(target error) bool {
	return target == ErrGatewayDecline
}
