package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidationError reports malformed input: non-positive quantities, missing
// required items, unknown enum values.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StateError reports an illegal lifecycle transition or an actor rule
// violation (approving a non-pending document, approver == creator, editing a
// non-draft document).
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

func NewStateError(format string, args ...interface{}) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientQuantityError reports a debit or consume that exceeds a lot's
// available balance. Available already excludes any cleaning reservation.
type InsufficientQuantityError struct {
	LotId     int
	LotNumber string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity on lot %s: requested %s kg, available %s kg",
		e.LotNumber, e.Requested.String(), e.Available.String())
}

// ConservationError reports a cleaning completion whose outputs + waste do not
// equal the input quantity exactly.
type ConservationError struct {
	InputQuantity decimal.Decimal
	Accounted     decimal.Decimal // sum(outputs) + waste
}

func (e *ConservationError) Error() string {
	delta := e.Accounted.Sub(e.InputQuantity)
	if delta.IsNegative() {
		return fmt.Sprintf("mass conservation violated: outputs + waste account for %s kg of %s kg input (shortfall %s kg)",
			e.Accounted.String(), e.InputQuantity.String(), delta.Neg().String())
	}
	return fmt.Sprintf("mass conservation violated: outputs + waste account for %s kg of %s kg input (excess %s kg)",
		e.Accounted.String(), e.InputQuantity.String(), delta.String())
}

// NotFoundError reports an unknown id reference. It unwraps to
// ErrorRecordNotFound so existing errors.Is checks keep working.
type NotFoundError struct {
	Resource string
	Id       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.Id)
}

func (e *NotFoundError) Unwrap() error { return ErrorRecordNotFound }

func NewNotFoundError(resource string, id int) error {
	return &NotFoundError{Resource: resource, Id: id}
}
