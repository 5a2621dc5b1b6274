package dplyr

import "fmt"

// SyntaxError is a lexing or parsing failure.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Pos.Line, e.Pos.Column)
}

// UnsupportedError is a grammatically valid construct the generator cannot express.
type UnsupportedError struct {
	Pos     Position
	Message string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Pos.Line, e.Pos.Column)
}

// Common error messages
const (
	errUnexpectedToken = "unexpected %s, expected %s"
	errUnknownVerb     = "unsupported operation %q"
	errUnknownFunction = "unsupported function %q"
	errBadArguments    = "%s() %s"
)
