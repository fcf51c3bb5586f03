package common

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one rejected request field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// Rule checks one value; nil means the value passes.
type Rule func(field string, value any) *FieldError

// Validator collects field errors from the HTTP and gRPC boundaries and
// the session service before anything touches the store.
type Validator struct {
	errs []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs every rule against value, keeping going after a failure.
func (v *Validator) Field(field string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if fe := rule(field, value); fe != nil {
			v.errs = append(v.errs, *fe)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

func (v *Validator) Errors() []FieldError { return v.errs }

// Error returns the collected failures as an AppError wrapping ErrValidation.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeInvalidInput, v.ErrorMessage(), ErrValidation)
}

func (v *Validator) ErrorMessage() string {
	msgs := make([]string, 0, len(v.errs))
	for _, fe := range v.errs {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

func stringValue(value any) (string, bool) {
	switch s := value.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	}
	return "", false
}

// Required rejects nil and blank strings.
func Required(field string, value any) *FieldError {
	if value == nil {
		return &FieldError{Field: field, Message: "is required"}
	}
	if s, ok := stringValue(value); ok && strings.TrimSpace(s) == "" {
		return &FieldError{Field: field, Message: "is required"}
	}
	if p, ok := value.(*string); ok && p == nil {
		return &FieldError{Field: field, Message: "is required"}
	}
	return nil
}

// MaxLength rejects strings longer than max runes. Cell values are capped at
// the spreadsheet cell limit through this rule.
func MaxLength(max int) Rule {
	return func(field string, value any) *FieldError {
		s, ok := stringValue(value)
		if ok && utf8.RuneCountInString(s) > max {
			return &FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
		}
		return nil
	}
}

// NonNegative accepts ints >= 0 and whole float64s in the int32 range, the
// shape a row index arrives in from structpb.
func NonNegative(field string, value any) *FieldError {
	switch n := value.(type) {
	case int:
		if n < 0 {
			return &FieldError{Field: field, Message: "must not be negative"}
		}
	case float64:
		if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
			return &FieldError{Field: field, Message: fmt.Sprintf("must be a non-negative integer, got %v", n)}
		}
	}
	return nil
}

func UUID(field string, value any) *FieldError {
	s, ok := stringValue(value)
	if !ok {
		return &FieldError{Field: field, Message: "must be a string"}
	}
	if _, err := uuid.Parse(s); err != nil {
		return &FieldError{Field: field, Message: "must be a valid UUID"}
	}
	return nil
}
