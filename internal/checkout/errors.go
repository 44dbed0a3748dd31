package checkout

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no line items
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInProgress is returned while another submission is running
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError lists the customer detail fields that failed validation
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid customer details: " + strings.Join(parts, ", ")
}
