package billing

import (
	"fmt"
	"net/url"
	"strings"
)

// GeneralField is the pseudo-field used for validation failures that are not
// tied to a single input field.
const GeneralField = "*"

// PaymentFailedMessage is shown when the provider rejects a billing
// mutation. The specific provider error is logged, never surfaced.
const PaymentFailedMessage = "We are unable to process your payment. Please contact customer support."

// ValidationError represents user-correctable failures keyed by field.
// It is based on url.Values to leverage built-in string slice handling.
type ValidationError url.Values

// NewValidationError creates an empty validation error.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

// Validation is a convenience constructor for a single-field failure.
func Validation(field, message string) ValidationError {
	e := NewValidationError()
	e.Add(field, message)
	return e
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	var parts []string
	for field, messages := range e {
		if len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, messages[0]))
		}
	}
	return fmt.Sprintf("validation error: %s", strings.Join(parts, ", "))
}

// Add appends an error message for a field.
func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

// Get returns the first error message for a field.
func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

// Has reports whether a field has any errors.
func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message of any field, for summary display.
func (e ValidationError) First() string {
	for _, messages := range e {
		if len(messages) > 0 {
			return messages[0]
		}
	}
	return ""
}
