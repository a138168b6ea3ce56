package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance that reports JSON field names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FieldError is one failed field in a Result
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the structured outcome of validating a request body
type Result struct {
	Errors []FieldError `json:"errors"`
}

// OK reports whether no field failed
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Error implements error so a failed Result can be returned directly
func (r Result) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Check validates s and converts validator errors into a Result
func (v *Validator) Check(s interface{}) Result {
	err := v.ValidateStruct(s)
	if err == nil {
		return Result{}
	}

	messages := FormatValidationErrors(err)
	if len(messages) == 0 {
		return Result{Errors: []FieldError{{Field: "", Message: err.Error()}}}
	}

	fields := make([]string, 0, len(messages))
	for field := range messages {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	result := Result{Errors: make([]FieldError, 0, len(fields))}
	for _, field := range fields {
		result.Errors = append(result.Errors, FieldError{Field: field, Message: messages[field]})
	}
	return result
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = fmt.Sprintf("%s is required", field)
			case "min":
				errs[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
			case "max":
				errs[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
			case "gte":
				errs[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
			case "lte":
				errs[field] = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
			default:
				errs[field] = fmt.Sprintf("%s is invalid", field)
			}
		}
	}

	return errs
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}
