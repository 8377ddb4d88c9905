package utils

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationError is one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body returned for rejected request fields
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors"`
}

// UseJSONFieldNames makes gin's validator report fields by their json name
// ("voltage_before" rather than "VoltageBefore")
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}

// FieldErrors flattens validator errors. prefix is prepended to every field
// name, e.g. "[3]." for the fourth reading of a batch. ok is false when err
// did not come from the validator.
func FieldErrors(err error, prefix string) (fields []ValidationError, ok bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}

	fields = make([]ValidationError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, ValidationError{
			Field:   prefix + toSnakeCase(fe.Field()),
			Message: validationMessage(fe),
		})
	}
	return fields, true
}

// HandleValidationErrors aborts with the rejected fields of a binding error
func HandleValidationErrors(ctx *gin.Context, err error) {
	HandleValidationErrorsAt(ctx, err, "")
}

// HandleValidationErrorsAt is HandleValidationErrors for one element of a batch
func HandleValidationErrorsAt(ctx *gin.Context, err error, prefix string) {
	fields, ok := FieldErrors(err, prefix)
	if !ok {
		// Malformed JSON or a type mismatch rather than a rule violation
		ctx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return
	}

	ctx.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
		Error:  "validation_error",
		Errors: fields,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("Must be at least %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("Must be at most %s, got %v", fe.Param(), fe.Value())
	default:
		return "Invalid value for this field"
	}
}

// toSnakeCase turns a Go field name into its snake_case form; json names pass through
func toSnakeCase(s string) string {
	if strings.ContainsRune(s, '_') || strings.ToLower(s) == s {
		return s
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && 'A' <= r && r <= 'Z' {
			b.WriteRune('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
