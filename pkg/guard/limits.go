package guard

// Default limits.
const (
	DefaultMaxNestingDepth  = 50
	DefaultMaxRepetitions   = 100
	DefaultMaxStringLiteral = 10000
)

// RepetitionOperators are counted by CheckRepetition.
var RepetitionOperators = []string{"%>%", "==", "!=", "<=", ">=", "&&", "||"}

// ResourcePatterns may blow up memory or CPU. Matches are warnings only.
var ResourcePatterns = []string{
	"rep(", "replicate(", "expand.grid(", "crossing(",
	"paste(", "paste0(", "sprintf(", "format(",
}

// InjectionPatterns indicate code execution or system access. Any match is fatal.
var InjectionPatterns = []string{
	"system(", "shell(", "exec(", "eval(", "parse(",
	"source(", "load(", "library(", "require(",
	"Sys.setenv(", "options(", "getOption(",
	".Call(", ".External(", ".C(", ".Fortran(",
	"dyn.load(", "dyn.unload(",
}

// FilesystemPatterns indicate file access. Matches are warnings only.
var FilesystemPatterns = []string{
	"file(", "file.path(", "dir(", "list.files(",
	"read.", "write.", "save(", "load(",
	"unlink(", "file.remove(", "file.create(",
}

// Limits are the thresholds used by the checks. Zero fields take defaults.
type Limits struct {
	MaxNestingDepth  int
	MaxRepetitions   int
	MaxStringLiteral int
}

// DefaultLimits returns the default thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxNestingDepth:  DefaultMaxNestingDepth,
		MaxRepetitions:   DefaultMaxRepetitions,
		MaxStringLiteral: DefaultMaxStringLiteral,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxNestingDepth <= 0 {
		l.MaxNestingDepth = DefaultMaxNestingDepth
	}
	if l.MaxRepetitions <= 0 {
		l.MaxRepetitions = DefaultMaxRepetitions
	}
	if l.MaxStringLiteral <= 0 {
		l.MaxStringLiteral = DefaultMaxStringLiteral
	}
	return l
}
