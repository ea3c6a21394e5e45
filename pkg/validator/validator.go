package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator for struct validation.
type Validator struct {
	cli *validator.Validate
}

// ValidationError represents an error encountered during validation of a struct field.
type ValidationError struct {
	Field   string
	Message string
}

func (v *Validator) formatError(err error) []ValidationError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	errs := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		msg := fmt.Sprintf("%s must be a valid %s", e.Field(), e.Tag())
		if e.Param() != "" {
			msg = fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param())
		}
		if e.Tag() == "required" {
			msg = e.Field() + " is required"
		}
		errs = append(errs, ValidationError{Field: e.Field(), Message: msg})
	}
	return errs
}

// ValidateStruct validates the provided struct and returns a slice of validation errors.
func (v *Validator) ValidateStruct(s interface{}) []ValidationError {
	if err := v.cli.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Join renders validation errors as one human-readable message.
func Join(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Message
	}
	return strings.Join(parts, "; ")
}

// New initializes and returns a new instance of the Validator.
// Field names are taken from json tags so messages match the wire format.
func New() *Validator {
	cli := validator.New()
	cli.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{cli: cli}
}
