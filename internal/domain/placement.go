package domain

import (
	"fmt"

	apperrors "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/errors"
)

// Placement failure taxonomy. The set is closed: PlaceOrder returns one of
// these (or nil), never an unclassified error. Each type unwraps to a
// pkg/errors sentinel so the HTTP layer can map status codes with errors.Is.

// ProductNotFoundError is returned when a draft line references a product
// that does not exist. Validation fails fast: the first offending line wins.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

// InsufficientStockError is returned when a product cannot cover the
// requested quantity, either at validation time or when a concurrent order
// won the conditional decrement.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return apperrors.ErrInsufficientStock
}

// PaymentDeclinedError is returned when the payment gateway declines the
// charge. No side effects have occurred: persistence only begins after a
// successful charge.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	if e.Reason == "" {
		return "payment declined"
	}
	return "payment declined: " + e.Reason
}

func (e *PaymentDeclinedError) Unwrap() error {
	return apperrors.ErrPaymentDeclined
}

// PersistenceError wraps a storage collaborator failure. It is surfaced to
// the caller, not retried; retry policy belongs to the caller.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UnexpectedError wraps any fault the workflow did not classify, including
// recovered panics, so the caller always receives a typed result.
type UnexpectedError struct {
	Cause error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure during order placement: %v", e.Cause)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Cause
}
