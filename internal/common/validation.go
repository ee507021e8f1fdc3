package common

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// Validator collects request-level validation errors.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
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

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage joins the collected messages, in field order.
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// Err returns nil or an AppError wrapping ErrInvalidInput with every collected message.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeInput, v.ErrorMessage(), ErrInvalidInput)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required rejects nil values and blank strings.
func Required(fieldName string, value interface{}) *ValidationError {
	blank := false
	switch v := value.(type) {
	case nil:
		blank = true
	case string:
		blank = strings.TrimSpace(v) == ""
	case *string:
		blank = v == nil || strings.TrimSpace(*v) == ""
	}
	if blank {
		return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("El campo %s no puede estar vacío", fieldName)}
	}
	return nil
}

// MaxLength returns a rule limiting string values to max runes.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("El campo %s no puede exceder %d caracteres", fieldName, max),
			}
		}
		return nil
	}
}

// OneOf returns a rule accepting only the listed values, compared case-insensitively.
// Blank values pass; pair it with Required.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("El campo %s debe ser texto", fieldName)}
		}
		norm := strings.ToUpper(strings.TrimSpace(str))
		if norm == "" {
			return nil
		}
		if !slices.Contains(allowed, norm) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("Valor no reconocido para %s. Valores permitidos: %s", fieldName, strings.Join(allowed, ", ")),
			}
		}
		return nil
	}
}

// WithMessage replaces the message of every error rule reports.
func WithMessage(message string, rule ValidationRule) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		err := rule(fieldName, value)
		if err != nil {
			err.Message = message
		}
		return err
	}
}
