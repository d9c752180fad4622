/*
errors.go - Error taxonomy for the inventory core

PURPOSE:
  All error types in one place. The core never produces user-facing text;
  callers (CLI, HTTP) map these values to messages or status codes.

ERROR CATEGORIES:
  1. NotFound - Product or sale does not exist
  2. InsufficientStock - Sale quantity exceeds current stock
  3. InvalidInput - Bad quantity, price, name or identifier at the boundary
  4. StoreUnavailable - Persistence failed, or the atomic unit could not be
     acquired or committed

USAGE:
  if errors.Is(err, inventory.ErrInsufficientStock) {
      var se *inventory.InsufficientStockError
      errors.As(err, &se) // se.Available, se.Requested
  }

SEE ALSO:
  - sale.go: Produces NotFound / InsufficientStock / InvalidInput
  - store/sqlite/sqlite.go: Produces StoreUnavailable
*/
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced product or sale doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a sale asks for more than is in stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidInput is returned for malformed values supplied by the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable is returned when the persistence layer fails.
	// The core never retries; callers may.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ProductID ProductID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// StoreError wraps a persistence failure. It matches both ErrStoreUnavailable
// and the underlying cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: store unavailable", e.Op)
	}
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStoreUnavailable}
	}
	return []error{ErrStoreUnavailable, e.Err}
}

// Unavailable wraps err as a StoreError for op. Errors that already belong to
// the taxonomy are returned unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// productNotFound is the NotFound error for a product id.
func productNotFound(id ProductID) error {
	return fmt.Errorf("product %d: %w", id, ErrNotFound)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing product or sale.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Kind returns a short label for the error category, or "" for errors
// outside the taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(err, ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, ErrStoreUnavailable):
		return "store unavailable"
	}
	return ""
}

// Detail returns the context of err without its kind label, so callers that
// print Kind(err) as a prefix don't repeat it.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		return fmt.Sprintf("product %d: available %d, requested %d",
			stock.ProductID, stock.Available, stock.Requested)
	}
	var input *InvalidInputError
	if errors.As(err, &input) {
		return input.Field + ": " + input.Reason
	}
	var store *StoreError
	if errors.As(err, &store) {
		if store.Err == nil {
			return store.Op
		}
		return store.Op + ": " + store.Err.Error()
	}
	msg := err.Error()
	if kind := Kind(err); kind != "" {
		msg = strings.TrimSuffix(strings.TrimSuffix(msg, kind), ": ")
	}
	return msg
}
