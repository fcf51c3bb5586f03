package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type ErrorType string

const (
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorAuth      ErrorType = "auth"
	ErrorCanceled  ErrorType = "canceled"
	ErrorPermanent ErrorType = "permanent"
)

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "…"
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Status, body)
}

// ClassifyError buckets a provider error. Rate limits and transient failures may be
// retried; the rest may not.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Status == 429:
			return ErrorRate
		case se.Status == 401 || se.Status == 403:
			return ErrorAuth
		case se.Status >= 500:
			return ErrorTransient
		default:
			return ErrorPermanent
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTransient
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "429"), strings.Contains(e, "rate limit"), strings.Contains(e, "resource_exhausted"):
		return ErrorRate
	case strings.Contains(e, "401"), strings.Contains(e, "403"), strings.Contains(e, "api key"), strings.Contains(e, "permission_denied"):
		return ErrorAuth
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "connection reset"), strings.Contains(e, "error 500"), strings.Contains(e, "error 502"),
		strings.Contains(e, "error 503"), strings.Contains(e, "error 504"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// IsTransient reports whether one more attempt may succeed.
func IsTransient(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorTransient:
		return true
	}
	return false
}
