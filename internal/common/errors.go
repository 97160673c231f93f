package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the numeric packages. Concrete errors wrap one of
// these so callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrDegenerateInput   = errors.New("degenerate input")
	ErrUnsupportedMethod = errors.New("unsupported method")
)

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Degeneratef returns an error wrapping ErrDegenerateInput.
func Degeneratef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegenerateInput, fmt.Sprintf(format, args...))
}

// UnsupportedMethodError reports a method name outside the known set.
type UnsupportedMethodError struct {
	Method string
	Valid  []string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method %q, choose one of [%s]", e.Method, strings.Join(e.Valid, ", "))
}

func (e *UnsupportedMethodError) Unwrap() error {
	return ErrUnsupportedMethod
}

// ErrorKind names the taxonomy bucket of err, or "internal" when it matches none.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDegenerateInput):
		return "degenerate_input"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	default:
		return "internal"
	}
}
