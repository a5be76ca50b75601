package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductReserved   = errors.New("product has open reservations")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidationError carries one message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field rejection.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Shortage is one item of a rejected reservation: which product fell short,
// what was asked for and what was actually available.
type Shortage struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError rejects a whole reservation batch. It lists every
// short item so callers can report the exact products and quantities instead
// of a generic failure.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, sh := range e.Shortages {
		parts[i] = fmt.Sprintf("product %d (%s): requested %d, available %d",
			sh.ProductID, sh.ProductName, sh.Requested, sh.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
