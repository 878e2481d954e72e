package failure

import (
	"errors"
	"fmt"
)

// Kind represents the category of a pipeline task failure
type Kind string

const (
	// KindConfiguration indicates a required credential or setting is missing
	KindConfiguration Kind = "configuration"
	// KindConnectivity indicates the store could not be reached
	KindConnectivity Kind = "connectivity"
	// KindSchema indicates the store is reachable but malformed (e.g. missing table)
	KindSchema Kind = "schema"
	// KindDataShape indicates a payload is missing the expected time series
	KindDataShape Kind = "data_shape"
	// KindTransaction indicates a write transaction failed and was rolled back
	KindTransaction Kind = "transaction"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrConnectivity  = &Error{Kind: KindConnectivity}
	ErrSchema        = &Error{Kind: KindSchema}
	ErrDataShape     = &Error{Kind: KindDataShape}
	ErrTransaction   = &Error{Kind: KindTransaction}
)

// Error is a typed task failure. Retryable tells the executor whether
// another attempt may succeed.
type Error struct {
	Kind      Kind
	Retryable bool
	Message   string
	Cause     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error", e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Configuration creates a configuration error
func Configuration(format string, args ...any) *Error {
	return &Error{
		Kind:      KindConfiguration,
		Retryable: false,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Connectivity creates a connectivity error
func Connectivity(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      KindConnectivity,
		Retryable: true,
		Message:   fmt.Sprintf(format, args...),
		Cause:     cause,
	}
}

// Schema creates a schema error
func Schema(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      KindSchema,
		Retryable: false,
		Message:   fmt.Sprintf(format, args...),
		Cause:     cause,
	}
}

// DataShape creates a data shape error
func DataShape(format string, args ...any) *Error {
	return &Error{
		Kind:      KindDataShape,
		Retryable: false,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Transaction creates a transaction error
func Transaction(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      KindTransaction,
		Retryable: true,
		Message:   fmt.Sprintf(format, args...),
		Cause:     cause,
	}
}

// IsRetryable reports whether err may succeed on another attempt.
// Errors that carry no failure kind are treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return true
}

// KindOf returns the failure kind carried by err, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
