package core

import "strings"

// =============================================================================
// Kind
// =============================================================================

// Kind is the fixed taxonomy every rejected query is classified into.
type Kind int

// Taxonomy values. The order matters only for String and ParseKind.
const (
	// KindNullOrMalformedInput indicates missing or invalid input at the boundary.
	KindNullOrMalformedInput Kind = iota
	// KindInputTooLarge indicates the input exceeds the configured length limit.
	KindInputTooLarge
	// KindTimeout indicates the configured processing-time budget was exceeded.
	KindTimeout
	// KindSyntaxError indicates the fragment fails the transpiler grammar.
	KindSyntaxError
	// KindUnsupportedOperation indicates a grammatically valid but unsupported fragment.
	KindUnsupportedOperation
	// KindSecurityRejected indicates the fragment failed input screening.
	KindSecurityRejected
	// KindInternalError indicates a transpiler or engine internal failure.
	KindInternalError
	// KindProtocolError indicates a stage was invoked out of order or an artifact is missing.
	KindProtocolError
)

var kindNames = [...]string{
	KindNullOrMalformedInput: "NullOrMalformedInput",
	KindInputTooLarge:        "InputTooLarge",
	KindTimeout:              "Timeout",
	KindSyntaxError:          "SyntaxError",
	KindUnsupportedOperation: "UnsupportedOperation",
	KindSecurityRejected:     "SecurityRejected",
	KindInternalError:        "InternalError",
	KindProtocolError:        "ProtocolError",
}

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Recoverable reports whether retrying with corrected input can succeed.
func (k Kind) Recoverable() bool {
	switch k {
	case KindNullOrMalformedInput, KindInputTooLarge, KindTimeout,
		KindSyntaxError, KindUnsupportedOperation, KindSecurityRejected:
		return true
	default:
		return false
	}
}

// Category returns the coarse grouping used in log records.
func (k Kind) Category() string {
	switch k {
	case KindNullOrMalformedInput, KindSecurityRejected:
		return "input_validation"
	case KindInputTooLarge, KindTimeout:
		return "resource_limit"
	case KindSyntaxError:
		return "syntax_error"
	case KindUnsupportedOperation:
		return "unsupported_operation"
	case KindProtocolError:
		return "protocol_error"
	default:
		return "internal_error"
	}
}

// ParseKind converts a name to a Kind (case-insensitive).
// Returns KindInternalError and false if the name is unknown.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), true
		}
	}
	return KindInternalError, false
}
