package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for kind-based matching with errors.Is.
var (
	ErrMalformedInput = &Error{Kind: KindNullOrMalformedInput}
	ErrInputTooLarge  = &Error{Kind: KindInputTooLarge}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrSyntax         = &Error{Kind: KindSyntaxError}
	ErrUnsupported    = &Error{Kind: KindUnsupportedOperation}
	ErrSecurity       = &Error{Kind: KindSecurityRejected}
	ErrInternal       = &Error{Kind: KindInternalError}
	ErrProtocol       = &Error{Kind: KindProtocolError}
)

// Error is a classified pipeline failure.
//
// Message is the raw cause. Diagnostic, when set, is the fully formatted
// user-facing text (see pkg/diag) and is what Error() returns.
type Error struct {
	Kind       Kind
	Message    string
	Fragment   string
	Diagnostic string
	Err        error
}

// Errorf creates an unformatted Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return e.Diagnostic
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels above work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the taxonomy kind from err.
// Errors that carry no kind are treated as internal errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}
