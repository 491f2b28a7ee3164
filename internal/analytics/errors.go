package analytics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is returned when input columns are missing or malformed
	ErrSchema = errors.New("schema error")
	// ErrEmptyPopulation marks a filtered subset with zero rows
	ErrEmptyPopulation = errors.New("empty population")
	// ErrDivisionByZero marks a ratio whose denominator population is zero
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInsufficientPopulation marks RFM input with fewer than four customers
	ErrInsufficientPopulation = errors.New("insufficient population")
	// ErrCapacityExceeded marks a per-group breakdown over its configured limit
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// SchemaError lists the required columns that could not be resolved
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing required columns [%s] (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// IsDegenerate reports whether err is a statistical degeneracy that callers
// should render as an empty state rather than a failure.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrEmptyPopulation) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrInsufficientPopulation)
}
