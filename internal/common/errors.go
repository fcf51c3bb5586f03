package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig             = "CONFIG_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeUnreadableDocument = "UNREADABLE_DOCUMENT"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeTemplateSchema     = "TEMPLATE_SCHEMA_ERROR"
	CodeStore              = "STORE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrExternalService    = errors.New("external service error")
	ErrTemplateSchema     = errors.New("template schema error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UnsupportedFormatError reports a document whose extension no loader handles.
func UnsupportedFormatError(name, ext string) *AppError {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("%s: extension %q is not supported", name, ext), ErrUnsupportedFormat)
}

// UnreadableDocumentError reports a corrupt document or one with no text layer.
func UnreadableDocumentError(name, reason string, cause error) *AppError {
	msg := fmt.Sprintf("%s: %s", name, reason)
	if cause != nil {
		msg = fmt.Sprintf("%s: %s: %v", name, reason, cause)
	}
	return NewAppError(CodeUnreadableDocument, msg, ErrUnreadableDocument)
}

// ExternalServiceError wraps a failed or timed out call to the completion service.
func ExternalServiceError(provider string, cause error) *AppError {
	msg := provider + " call failed"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return NewAppError(CodeExternalService, msg, ErrExternalService)
}

// TemplateSchemaError reports a template that cannot define an output schema.
func TemplateSchemaError(format string, args ...any) *AppError {
	return NewAppError(CodeTemplateSchema, fmt.Sprintf(format, args...), ErrTemplateSchema)
}

// CodeOf returns the AppError code in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MessageOf returns the AppError message in err's chain, falling back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps an application error onto a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError(MessageOf(err))
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return InvalidArgumentError(MessageOf(err))
	case errors.Is(err, ErrTemplateSchema):
		return FailedPreconditionError(MessageOf(err))
	default:
		return InternalError(err.Error())
	}
}
