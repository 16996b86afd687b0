package domain

import (
	"fmt"
	"strings"
)

// InvalidInputError marks malformed or missing required fields on a post.
// Caller's fault, never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// UnsupportedCurrencyError is returned when a detected prize currency has no
// entry in the conversion table.
type UnsupportedCurrencyError struct {
	Currency string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency: %s", e.Currency)
}

// InvalidDurationError marks a non-positive duration reaching the ROI
// computation. The default-duration fallback should prevent it upstream.
type InvalidDurationError struct {
	Hours int
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration: %d hours", e.Hours)
}

// ValidationError marks an event that cannot be rendered because mandatory
// message fields are missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event not renderable, missing: %s", strings.Join(e.Missing, ", "))
}
