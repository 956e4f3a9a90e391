// Package validation collects field-level validation errors so a request
// can be rejected with every problem reported at once.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidateTime checks a field is a valid diary slot time (HH:MM).
func ValidateTime(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("15:04", value); err != nil {
		ve.Add(field, "must be a valid time (HH:MM)")
	}
}

// ValidateEmail checks a field is a plausible email address.
func ValidateEmail(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		ve.Add(field, "must be a valid email address")
	}
}

// ValidatePositiveInt checks a field is > 0.
func ValidatePositiveInt(ve *ValidationErrors, field string, value int) {
	if value <= 0 {
		ve.Add(field, "must be a positive integer")
	}
}

// ValidateNonNegativeInt checks a field is >= 0.
func ValidateNonNegativeInt(ve *ValidationErrors, field string, value int) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateYear checks a plausible vehicle model year.
func ValidateYear(ve *ValidationErrors, field string, value int) {
	if value == 0 {
		return
	}
	if value < 1900 || value > time.Now().Year()+1 {
		ve.Add(field, "must be a plausible model year")
	}
}

// ValidateMaxLen checks a free-text field does not exceed max characters.
func ValidateMaxLen(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}
