package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is returned by Validator.Error; it matches ErrValidation.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	return strings.Join(v.Messages(), "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

// Messages returns one "field: message" string per failure.
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Error()
	}
	return out
}

// AsValidationErrors extracts validation failures from err's chain.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Validator provides validation utilities
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns the collected failures as ValidationErrors, or nil
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	s, ok := stringValue(value)
	if value == nil || (ok && strings.TrimSpace(s) == "") {
		return &ValidationError{Field: fieldName, Value: value, Message: "field required"}
	}
	if p, isPtr := value.(*string); isPtr && p == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "field required"}
	}
	return nil
}

// MinLength is skipped for nil pointers so optional fields can reuse it.
func MinLength(min int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := stringValue(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(strings.TrimSpace(s)) < min {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at least %d characters", min)}
		}
		return nil
	}
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := stringValue(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) > max {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at most %d characters", max)}
		}
		return nil
	}
}

func Email(fieldName string, value any) *ValidationError {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if !reEmail.MatchString(s) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid email address"}
	}
	return nil
}

// ISODate accepts YYYY-MM-DD.
func ISODate(fieldName string, value any) *ValidationError {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a date in YYYY-MM-DD format"}
	}
	return nil
}
