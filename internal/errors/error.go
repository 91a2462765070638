package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryEncoder   Category = "encoder"
	CategoryNative    Category = "native"
	CategorySync      Category = "sync"
	CategoryTree      Category = "tree"
	CategoryDispatch  Category = "dispatch"
	CategoryConfig    Category = "config"
	CategoryRecording Category = "recording"
	CategoryCLI       Category = "cli"
)

// BridgeError is a structured error with a code, explanation and fix hint.
type BridgeError struct {
	// Code is a unique error identifier (e.g., "B001").
	Code string

	// Category is the error type (encoder, native, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Fatal marks errors after which the current frame or the bridge
	// itself cannot continue.
	Fatal bool

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BridgeError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a BridgeError with the same code.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BridgeError) WithSuggestion(s string) *BridgeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BridgeError) WithDetail(d string) *BridgeError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted explanation to the error.
func (e *BridgeError) WithDetailf(format string, args ...any) *BridgeError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *BridgeError) Wrap(err error) *BridgeError {
	e.Wrapped = err
	return e
}

// New creates a BridgeError from a registered error code.
func New(code string) *BridgeError {
	template, ok := registry[code]
	if !ok {
		return &BridgeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BridgeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Fatal:    template.Fatal,
	}
}

// Newf creates a new BridgeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BridgeError {
	return &BridgeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a BridgeError.
func FromError(err error, code string) *BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BridgeError); ok {
		return be
	}
	return New(code).Wrap(err)
}

// IsFatal reports whether err carries a fatal BridgeError.
func IsFatal(err error) bool {
	for err != nil {
		if be, ok := err.(*BridgeError); ok && be.Fatal {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
