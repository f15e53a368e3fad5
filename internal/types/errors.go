package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for definitive collaborator answers. A 404 from a
// collaborator is an application answer, not a transport failure, and is
// never retried.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("payment already exists for this order")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InsufficientStockError reports a reservation or pre-check that would
// drive stock negative. AvailableStock lets the caller retry with a
// corrected quantity.
type InsufficientStockError struct {
	AvailableStock int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.AvailableStock)
}

// UpstreamError wraps a collaborator call that failed at the transport
// layer or returned an unexpected status after retry exhaustion.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StockReservationError reports a reservation failure that triggered a
// rollback of the local order transaction.
type StockReservationError struct {
	Err error
}

func (e *StockReservationError) Error() string {
	return fmt.Sprintf("failed to reserve stock: %v", e.Err)
}

func (e *StockReservationError) Unwrap() error {
	return e.Err
}

// StockUpdateError reports a ledger adjustment failure during a quantity
// change. The local fields were reverted to their prior values.
type StockUpdateError struct {
	Err error
}

func (e *StockUpdateError) Error() string {
	return fmt.Sprintf("failed to update product stock: %v", e.Err)
}

func (e *StockUpdateError) Unwrap() error {
	return e.Err
}

// CompensationError reports that a best-effort local revert itself failed.
// It is surfaced distinctly so an operator can reconcile manually.
type CompensationError struct {
	Op  string
	Err error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed during %s: %v", e.Op, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
