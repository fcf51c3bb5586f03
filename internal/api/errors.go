package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for one request field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// FromError maps a service error onto an APIError.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{Status: httpErr.Code, Code: "HTTP_ERROR", Message: fmt.Sprintf("%v", httpErr.Message)}
	}

	out := &APIError{Code: common.CodeOf(err), Message: common.MessageOf(err)}
	switch {
	case errors.Is(err, common.ErrTemplateSchema):
		out.Status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrNotFound):
		out.Status = http.StatusNotFound
	case errors.Is(err, common.ErrValidation):
		out.Status = http.StatusBadRequest
		out.Code = "VALIDATION_ERROR"
	case errors.Is(err, common.ErrInvalidInput):
		out.Status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnsupportedFormat):
		out.Status = http.StatusUnsupportedMediaType
	case errors.Is(err, context.DeadlineExceeded):
		out.Status = http.StatusGatewayTimeout
		out.Code = "TIMEOUT"
		out.Message = "request timed out"
	default:
		out.Status = http.StatusInternalServerError
		out.Code = common.CodeInternal
		out.Message = "an unexpected error occurred"
	}
	if out.Code == "" {
		out.Code = http.StatusText(out.Status)
	}
	return out
}

// ErrorHandler renders errors as APIError JSON.
// Usage: e.HTTPErrorHandler = api.ErrorHandler(logger)
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		apiErr := FromError(err)
		log := common.LoggerFromContext(c.Request().Context(), logger)
		if apiErr.Status >= http.StatusInternalServerError {
			log.Error("http.error", "path", c.Path(), "status", apiErr.Status, "error", err)
		} else {
			log.Debug("http.error", "path", c.Path(), "status", apiErr.Status, "error", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(apiErr.Status)
			return
		}
		_ = c.JSON(apiErr.Status, apiErr)
	}
}
