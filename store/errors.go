package store

import (
	"errors"
	"fmt"

	"hisaabpos/domain"
)

// DuplicateProductError is returned when attempting to create a product with an existing ID
type DuplicateProductError struct {
	ProductID int64
}

// Error implements the error interface for DuplicateProductError
func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("duplicate product: id=%d already exists", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *DuplicateProductError) Is(target error) bool {
	_, ok := target.(*DuplicateProductError)
	return ok
}

// SaleNotFoundError is returned when a sale id is unknown
type SaleNotFoundError struct {
	SaleID domain.RecordID
}

// Error implements the error interface for SaleNotFoundError
func (e *SaleNotFoundError) Error() string {
	return fmt.Sprintf("sale not found: id=%s", e.SaleID)
}

// NewDuplicateProductError creates a new DuplicateProductError
func NewDuplicateProductError(productID int64) error {
	return &DuplicateProductError{ProductID: productID}
}

// NewSaleNotFoundError creates a new SaleNotFoundError
func NewSaleNotFoundError(id domain.RecordID) error {
	return &SaleNotFoundError{SaleID: id}
}

// IsDuplicateProductError checks if an error is a DuplicateProductError
func IsDuplicateProductError(err error) bool {
	var dpe *DuplicateProductError
	return errors.As(err, &dpe)
}

// IsSaleNotFoundError checks if an error is a SaleNotFoundError
func IsSaleNotFoundError(err error) bool {
	var snf *SaleNotFoundError
	return errors.As(err, &snf)
}
