package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicateCase is returned when two cases share a name.
	ErrDuplicateCase = errors.New("duplicate case name")
	// ErrEmptyName is returned for a case without a name.
	ErrEmptyName = errors.New("case name is empty")
	// ErrMalformedCommand is returned for an override that cannot be split
	// into arguments.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrNoCases is returned for a matrix without cases.
	ErrNoCases = errors.New("matrix defines no cases")
)

// ValidationError represents a configuration validation error with context
type ValidationError struct {
	FilePath string
	Field    string
	Message  string
	Err      error
}

func (e *ValidationError) Error() string {
	switch {
	case e.FilePath != "" && e.Field != "":
		return fmt.Sprintf("%s: field '%s': %s", e.FilePath, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
	case e.FilePath != "":
		return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
	default:
		return e.Message
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSettings checks value ranges and enumerations of s, including the
// shard selection.
func ValidateSettings(s *Settings) error {
	if err := s.Shards().Validate(); err != nil {
		return &ValidationError{Message: err.Error(), Err: err}
	}
	return structError("", validate.Struct(s))
}

// validateCases checks a loaded case list. All problems are reported, joined.
func validateCases(path string, cases []caseFile) error {
	if len(cases) == 0 {
		return &ValidationError{FilePath: path, Message: ErrNoCases.Error(), Err: ErrNoCases}
	}

	var errs []error
	seen := make(map[string]int, len(cases))
	for i, c := range cases {
		field := fmt.Sprintf("cases[%d]", i)

		name := strings.TrimSpace(c.Name)
		if name == "" {
			errs = append(errs, &ValidationError{FilePath: path, Field: field + ".name", Message: ErrEmptyName.Error(), Err: ErrEmptyName})
		} else if first, dup := seen[name]; dup {
			errs = append(errs, &ValidationError{
				FilePath: path,
				Field:    field + ".name",
				Message:  fmt.Sprintf("%s %q (first declared at cases[%d])", ErrDuplicateCase, name, first),
				Err:      ErrDuplicateCase,
			})
		} else {
			seen[name] = i
		}

		if err := structError(path, validate.Struct(c)); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = field + "." + ve.Field
			}
			errs = append(errs, err)
		}

		if c.Command != "" {
			if err := matrix.ValidateCommand(c.Command); err != nil {
				errs = append(errs, &ValidationError{
					FilePath: path,
					Field:    field + ".command",
					Message:  fmt.Sprintf("%s: %v", ErrMalformedCommand, err),
					Err:      ErrMalformedCommand,
				})
			}
		}
	}
	return errors.Join(errs...)
}

// structError converts the first validator failure into a ValidationError.
func structError(path string, err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldErr := validationErrors[0]
		return &ValidationError{
			FilePath: path,
			Field:    toSnakeCase(fieldErr.Field()),
			Message:  formatValidationError(fieldErr),
		}
	}
	return &ValidationError{FilePath: path, Message: err.Error()}
}

// formatValidationError formats a validation error for a specific field.
func formatValidationError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fieldErr.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation: %s", fieldErr.Tag())
	}
}

// toSnakeCase converts a CamelCase field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
