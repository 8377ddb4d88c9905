package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/series"
	"go.uber.org/zap"
)

// Common error types for consistent handling
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrBadRequest         = errors.New("invalid request")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrValidation         = errors.New("validation error")
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HandleError processes an error and returns the appropriate HTTP response
func HandleError(ctx *gin.Context, err error, logger *Logger) {
	status, response := ProcessError(err)

	if status >= 500 {
		logger.Error("Server error",
			zap.Error(err),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("method", ctx.Request.Method),
			zap.String("ip", ctx.ClientIP()),
		)
	}

	ctx.AbortWithStatusJSON(status, response)
}

// ProcessError determines the HTTP status code and response body for an error
func ProcessError(err error) (int, ErrorResponse) {
	var coded *ErrorWithCode
	code := ""
	if errors.As(err, &coded) {
		code = coded.Code
	}

	status, kind := classify(err)
	response := ErrorResponse{Error: kind, Message: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		response.Message = "An unexpected error occurred"
	}
	return status, response
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, series.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, series.ErrUnknownQuantity):
		return http.StatusNotFound, "unknown_quantity"
	case errors.Is(err, outage.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, outage.ErrAlreadyActive):
		return http.StatusConflict, "outage_active"
	case errors.Is(err, outage.ErrLifecycle):
		return http.StatusConflict, "invalid_lifecycle"
	case errors.Is(err, outage.ErrMalformedRecord):
		return http.StatusBadGateway, "malformed_record"
	case errors.Is(err, outage.ErrSourceUnavailable), errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// ErrorWithCode attaches a machine-readable code to an error
type ErrorWithCode struct {
	Err  error
	Code string
}

// Error returns the error message
func (e *ErrorWithCode) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error
func (e *ErrorWithCode) Unwrap() error {
	return e.Err
}

// NewErrorWithCode creates a new error with a custom error code
func NewErrorWithCode(err error, code string) error {
	return &ErrorWithCode{
		Err:  err,
		Code: code,
	}
}

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
