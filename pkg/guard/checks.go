package guard

import (
	"fmt"
	"strings"
)

// CheckCharacters rejects control bytes other than tab, newline and carriage
// return. A high byte followed by an ASCII byte is only observed.
func CheckCharacters(code string, _ Limits) (*Rejection, []Observation) {
	var obs []Observation
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return &Rejection{
				Kind:     ControlCharacter,
				Position: i,
				Detail:   fmt.Sprintf("DPLYR code contains invalid control character at position %d", i),
			}, obs
		}
		// heuristic only: continuation bytes are not decoded here
		if c > 0x7F && i+1 < len(code) && code[i+1] < 0x80 {
			obs = append(obs, Observation{Kind: EncodingAnomaly, Position: i})
		}
	}
	return nil, obs
}

// CheckNesting bounds the combined depth of (, [ and {.
// Closers are not matched against openers and the depth may go negative.
func CheckNesting(code string, lim Limits) (*Rejection, []Observation) {
	depth := 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '(', '[', '{':
			depth++
			if depth > lim.MaxNestingDepth {
				return &Rejection{
					Kind:     ExcessiveNesting,
					Position: i,
					Detail:   fmt.Sprintf("DPLYR code has excessive nesting depth: %d > %d", depth, lim.MaxNestingDepth),
				}, nil
			}
		case ')', ']', '}':
			depth--
		}
	}
	return nil, nil
}

// CheckRepetition counts non-overlapping occurrences of each operator.
func CheckRepetition(code string, lim Limits) (*Rejection, []Observation) {
	for _, op := range RepetitionOperators {
		count := 0
		pos := 0
		for {
			idx := strings.Index(code[pos:], op)
			if idx < 0 {
				break
			}
			count++
			pos += idx + len(op)
			if count > lim.MaxRepetitions {
				return &Rejection{
					Kind:     ExcessiveRepetition,
					Position: pos - len(op),
					Pattern:  op,
					Detail:   fmt.Sprintf("DPLYR code has excessive repetition of operator '%s': %d times", op, count),
				}, nil
			}
		}
	}
	return nil, nil
}

// CheckResources observes resource-heavy calls and rejects oversized string literals.
//
// A delimiter preceded by a backslash does not close the literal. The length
// counted is from the opening delimiter up to, not including, the closing one.
func CheckResources(code string, lim Limits) (*Rejection, []Observation) {
	obs := matchPatterns(code, ResourcePatterns, ResourcePattern)

	inString := false
	var delim byte
	start := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case !inString && (c == '"' || c == '\''):
			inString = true
			delim = c
			start = i
		case inString && c == delim && code[i-1] != '\\':
			inString = false
			if length := i - start; length > lim.MaxStringLiteral {
				return &Rejection{
					Kind:     ExcessiveStringLiteral,
					Position: start,
					Detail:   fmt.Sprintf("DPLYR code contains excessively long string literal: %d characters", length),
				}, obs
			}
		}
	}
	return nil, obs
}

// CheckAdvanced rejects code-execution patterns and observes filesystem access.
func CheckAdvanced(code string, _ Limits) (*Rejection, []Observation) {
	for _, p := range InjectionPatterns {
		if idx := strings.Index(code, p); idx >= 0 {
			return &Rejection{
				Kind:     SuspiciousPattern,
				Position: idx,
				Pattern:  p,
				Detail:   "DPLYR code contains potentially dangerous pattern: " + p,
			}, nil
		}
	}
	return nil, matchPatterns(code, FilesystemPatterns, FilesystemPattern)
}

func matchPatterns(code string, patterns []string, kind ObservationKind) []Observation {
	var obs []Observation
	for _, p := range patterns {
		if idx := strings.Index(code, p); idx >= 0 {
			obs = append(obs, Observation{Kind: kind, Position: idx, Pattern: p})
		}
	}
	return obs
}
