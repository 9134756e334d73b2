// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrForbidden  = errors.New("not allowed")
	ErrNotFound   = errors.New("not found")
	ErrOutOfStock = errors.New("out of stock")
	ErrConflict   = errors.New("conflict")
)

// OutOfStockError reports the product that could not cover an order line.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock (requested: %d, available: %d)", e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is match OutOfStockError against ErrOutOfStock.
func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// Validation wraps ErrValidation with a formatted reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// NotFound wraps ErrNotFound for the given entity kind and id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s with ID %s %w", kind, id, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a formatted reason.
func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// Conflict wraps ErrConflict with a formatted reason.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}
