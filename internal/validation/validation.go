// Package validation checks request structs with go-playground/validator and
// reports every violation as an apperrors.FieldError keyed by its JSON path.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator, which reports fields by JSON name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
	})
	return validate
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// Struct validates v and returns a ValidationError listing every violated constraint.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation([]apperrors.FieldError{{Field: "body", Reason: err.Error()}})
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return apperrors.NewValidation(fields)
}

// FromBindError converts a JSON decoding failure into a ValidationError.
func FromBindError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperrors.NewValidation([]apperrors.FieldError{{
			Field:  field,
			Reason: fmt.Sprintf("must be of type %s", typeErr.Type),
		}})
	case errors.As(err, &syntaxErr):
		return apperrors.NewValidation([]apperrors.FieldError{{
			Field:  "body",
			Reason: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset),
		}})
	case errors.Is(err, io.EOF):
		return apperrors.NewValidation([]apperrors.FieldError{{Field: "body", Reason: "is required"}})
	default:
		return apperrors.NewValidation([]apperrors.FieldError{{Field: "body", Reason: err.Error()}})
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
