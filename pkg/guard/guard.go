// Package guard screens pipeline fragments for adversarial input before they
// reach the transpiler.
//
// Five checks run in a fixed order: character safety, nesting depth, operator
// repetition, resource patterns (including string-literal length) and the
// advanced pattern screen. The first fatal finding is the verdict. Non-fatal
// observations are logged and never block later checks.
package guard

import (
	"fmt"
	"log/slog"
)

// RejectKind identifies which check rejected a fragment.
type RejectKind int

// Rejection kinds, one per fatal finding.
const (
	ControlCharacter RejectKind = iota + 1
	ExcessiveNesting
	ExcessiveRepetition
	ExcessiveStringLiteral
	SuspiciousPattern
)

// String returns the name of the rejection kind.
func (k RejectKind) String() string {
	switch k {
	case ControlCharacter:
		return "ControlCharacter"
	case ExcessiveNesting:
		return "ExcessiveNesting"
	case ExcessiveRepetition:
		return "ExcessiveRepetition"
	case ExcessiveStringLiteral:
		return "ExcessiveStringLiteral"
	case SuspiciousPattern:
		return "SuspiciousPattern"
	default:
		return "Unknown"
	}
}

// Rejection is a fatal finding.
type Rejection struct {
	Kind RejectKind
	// Position is the byte offset of the finding, or -1 when it has none.
	Position int
	// Pattern is the offending operator or call-like substring, if any.
	Pattern string
	Detail  string
}

func (r *Rejection) Error() string {
	return r.Detail
}

// ObservationKind identifies a non-fatal finding.
type ObservationKind int

// Observation kinds.
const (
	EncodingAnomaly ObservationKind = iota + 1
	ResourcePattern
	FilesystemPattern
)

// String returns the name of the observation kind.
func (k ObservationKind) String() string {
	switch k {
	case EncodingAnomaly:
		return "EncodingAnomaly"
	case ResourcePattern:
		return "ResourcePattern"
	case FilesystemPattern:
		return "FilesystemPattern"
	default:
		return "Unknown"
	}
}

// Observation is a non-fatal finding that is logged and otherwise ignored.
type Observation struct {
	Kind     ObservationKind
	Position int
	Pattern  string
}

// Verdict is the outcome of Validate. Rejection is nil when the fragment is accepted.
type Verdict struct {
	Rejection    *Rejection
	Observations []Observation
}

// Accepted reports whether the fragment passed every fatal check.
func (v Verdict) Accepted() bool {
	return v.Rejection == nil
}

// Err returns the rejection as an error, or nil.
func (v Verdict) Err() error {
	if v.Rejection == nil {
		return nil
	}
	return v.Rejection
}

// Validator runs the checks with the given limits.
// The zero value is ready to use with default limits and no logging.
type Validator struct {
	Limits Limits
	Logger *slog.Logger
}

// New creates a Validator with default limits.
func New(logger *slog.Logger) *Validator {
	return &Validator{Limits: DefaultLimits(), Logger: logger}
}

// Validate runs all checks against code and returns the verdict.
func (v *Validator) Validate(code string) Verdict {
	lim := v.Limits.withDefaults()
	checks := []func(string, Limits) (*Rejection, []Observation){
		CheckCharacters,
		CheckNesting,
		CheckRepetition,
		CheckResources,
		CheckAdvanced,
	}

	var verdict Verdict
	for _, check := range checks {
		rej, obs := check(code, lim)
		verdict.Observations = append(verdict.Observations, obs...)
		v.logObservations(obs)
		if rej != nil {
			verdict.Rejection = rej
			v.logger().Error("input rejected",
				slog.String("category", "error_handling"),
				slog.String("kind", rej.Kind.String()),
				slog.Int("position", rej.Position),
				slog.String("detail", rej.Detail))
			return verdict
		}
	}
	return verdict
}

func (v *Validator) logObservations(obs []Observation) {
	for _, o := range obs {
		attrs := []any{
			slog.String("category", "error_handling"),
			slog.String("kind", o.Kind.String()),
		}
		if o.Pattern != "" {
			attrs = append(attrs, slog.String("pattern", o.Pattern))
		} else {
			attrs = append(attrs, slog.Int("position", o.Position))
		}
		v.logger().Warn(observationMessage(o.Kind), attrs...)
	}
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return v.Logger
}

func observationMessage(k ObservationKind) string {
	switch k {
	case EncodingAnomaly:
		return "potential encoding issue detected"
	case ResourcePattern:
		return "potential resource-intensive pattern detected"
	case FilesystemPattern:
		return "file system access pattern detected"
	default:
		return fmt.Sprintf("observation %d", k)
	}
}
