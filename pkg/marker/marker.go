// Package marker finds balanced (| ... |) embedding markers in query text.
//
// The scanner is a single forward pass with no backtracking. It skips only
// ASCII whitespace between the two characters of a marker and is not aware of
// SQL comments or string literals.
package marker

import "errors"

// ErrUnterminated is returned by Next when a start marker has no matching end marker.
var ErrUnterminated = errors.New("unterminated embedded segment: expected '|)'")

// Segment is one embedded fragment located in a query.
//
// Offsets are byte offsets into the scanned text:
// MarkerStart is the '(' of the opener, ContentStart is just past its '|',
// ContentEnd is the '|' of the closer and MarkerEnd is its ')'.
type Segment struct {
	MarkerStart  int
	ContentStart int
	ContentEnd   int
	MarkerEnd    int
	Content      string
}

// FindStart scans forward from byte offset from for '(' followed, after
// optional whitespace, by '|'.
func FindStart(text string, from int) (markerStart, contentStart int, ok bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(text); i++ {
		if text[i] != '(' {
			continue
		}
		j := skipSpace(text, i+1)
		if j < len(text) && text[j] == '|' {
			return i, j + 1, true
		}
	}
	return 0, 0, false
}

// FindEnd scans forward from byte offset from for '|' followed, after
// optional whitespace, by ')'.
func FindEnd(text string, from int) (contentEnd, markerEnd int, ok bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(text); i++ {
		if text[i] != '|' {
			continue
		}
		j := skipSpace(text, i+1)
		if j < len(text) && text[j] == ')' {
			return i, j, true
		}
	}
	return 0, 0, false
}

// Next returns the first complete segment at or after from.
// ok is false when no start marker remains. A start marker without an end
// marker yields ErrUnterminated.
func Next(text string, from int) (Segment, bool, error) {
	markerStart, contentStart, ok := FindStart(text, from)
	if !ok {
		return Segment{}, false, nil
	}
	contentEnd, markerEnd, ok := FindEnd(text, contentStart)
	if !ok {
		return Segment{MarkerStart: markerStart, ContentStart: contentStart}, false, ErrUnterminated
	}
	return Segment{
		MarkerStart:  markerStart,
		ContentStart: contentStart,
		ContentEnd:   contentEnd,
		MarkerEnd:    markerEnd,
		Content:      text[contentStart:contentEnd],
	}, true, nil
}

// Contains reports whether text has at least one start marker.
func Contains(text string) bool {
	_, _, ok := FindStart(text, 0)
	return ok
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpace(text[i]) {
		i++
	}
	return i
}

// isSpace matches the C isspace set: space, \t, \n, \v, \f, \r.
func isSpace(c byte) bool {
	return c == ' ' || (c >= '\t' && c <= '\r')
}
