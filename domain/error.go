// Package domain defines error types for the quick-sale client.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies an error for the operator-facing notification layer
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNetwork
)

// String returns the lower-case name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ValidationError is returned when operator input or cart state is rejected locally
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

// Error implements the error interface for ValidationError
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (value=%v)", e.Field, e.Reason, e.Value)
}

// Is allows proper error type checking with errors.Is()
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// InsufficientStockError is returned when a quantity exceeds the cached stock of a product.
// InCart is the quantity already in the cart when the request would merge into an existing line.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	InCart    int
	Available int
}

// Error implements the error interface for InsufficientStockError
func (e *InsufficientStockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("cannot add %d more %s: %d already in cart, only %d in stock (short by %d)",
			e.Requested, e.Name, e.InCart, e.Available, e.Shortfall())
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Shortfall is how many units are missing to satisfy the request
func (e *InsufficientStockError) Shortfall() int {
	return e.InCart + e.Requested - e.Available
}

// Is allows proper error type checking with errors.Is()
func (e *InsufficientStockError) Is(target error) bool {
	_, ok := target.(*InsufficientStockError)
	return ok
}

// StockShortfallError aggregates every cart line that cannot be sold
type StockShortfallError struct {
	Lines []error
}

// Error implements the error interface for StockShortfallError, one line per offending item
func (e *StockShortfallError) Error() string {
	msgs := make([]string, 0, len(e.Lines)+1)
	msgs = append(msgs, "stock check failed:")
	for _, l := range e.Lines {
		msgs = append(msgs, "  - "+l.Error())
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the per-line errors to errors.Is and errors.As
func (e *StockShortfallError) Unwrap() []error {
	return e.Lines
}

// ProductNotFoundError is returned when a product is not in the catalog snapshot
type ProductNotFoundError struct {
	ProductID int64
}

// Error implements the error interface for ProductNotFoundError
func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%d", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// BackendError is a non-2xx response from the REST backend
type BackendError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface for BackendError
func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: status=%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// Is allows proper error type checking with errors.Is()
func (e *BackendError) Is(target error) bool {
	_, ok := target.(*BackendError)
	return ok
}

// NetworkError wraps a transport failure (connection refused, timeout, bad body)
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface for NetworkError
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error
func (e *NetworkError) Unwrap() error { return e.Err }

// ErrSubmitInProgress is returned when a sale is submitted while another submission is in flight
var ErrSubmitInProgress = errors.New("a sale submission is already in progress")

// Helper functions for creating errors with context

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string, value interface{}) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
		Value:  value,
	}
}

// NewInsufficientStockError creates a new InsufficientStockError
func NewInsufficientStockError(p Product, requested, inCart int) error {
	return &InsufficientStockError{
		ProductID: p.ID,
		Name:      p.Name,
		Requested: requested,
		InCart:    inCart,
		Available: p.Stock,
	}
}

// NewProductNotFoundError creates a new ProductNotFoundError
func NewProductNotFoundError(productID int64) error {
	return &ProductNotFoundError{ProductID: productID}
}

// Type assertion helpers for use with errors.As()

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInsufficientStockError checks if an error is an InsufficientStockError
func IsInsufficientStockError(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}

// IsProductNotFoundError checks if an error is a ProductNotFoundError
func IsProductNotFoundError(err error) bool {
	var pnf *ProductNotFoundError
	return errors.As(err, &pnf)
}

// IsBackendError checks if an error is a BackendError
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsUnauthorized checks if an error is a 401 from the backend
func IsUnauthorized(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.StatusCode == http.StatusUnauthorized
}

// KindOf classifies err
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var (
		sse *StockShortfallError
		ne  *NetworkError
	)
	switch {
	case IsValidationError(err), IsInsufficientStockError(err), IsProductNotFoundError(err),
		errors.As(err, &sse), errors.Is(err, ErrSubmitInProgress):
		return KindValidation
	case IsBackendError(err), errors.As(err, &ne):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// UserMessage returns the text shown to the operator for err. Backend and transport
// failures without a usable message fall back to fallback.
func UserMessage(err error, fallback string) string {
	var be *BackendError
	if errors.As(err, &be) {
		if be.Message != "" {
			return be.Message
		}
		return fallback
	}
	if KindOf(err) == KindValidation {
		return err.Error()
	}
	return fallback
}
