package interp

import (
	"fmt"

	regexp "rsc.io/binaryregexp"
)

// RegexLimits defines safety limits for :regex matching.
type RegexLimits struct {
	// MaxPatternLength is the maximum allowed regex pattern length
	MaxPatternLength int
}

var DefaultRegexLimits = RegexLimits{
	MaxPatternLength: 1000,
}

// SafeRegexMatcher matches octet strings against a compiled pattern. The
// underlying engine runs in linear time in the input, so values are matched
// whole and only the pattern size is limited.
type SafeRegexMatcher struct {
	pattern *regexp.Regexp
}

// CompileSafeRegex compiles a POSIX extended regular expression pattern.
// If caseFold is set the pattern matches ASCII letters case-insensitively.
func CompileSafeRegex(pattern string, caseFold bool, limits RegexLimits) (*SafeRegexMatcher, error) {
	if len(pattern) > limits.MaxPatternLength {
		return nil, fmt.Errorf("regex pattern too long: %d > %d", len(pattern), limits.MaxPatternLength)
	}

	expr := pattern
	if caseFold {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("regex compile error: %w", err)
	}
	return &SafeRegexMatcher{pattern: re}, nil
}

func (m *SafeRegexMatcher) Match(input string) bool {
	return m.pattern.MatchString(input)
}

// Pattern returns the source of the pattern, including the case folding
// flag if any.
func (m *SafeRegexMatcher) Pattern() string {
	return m.pattern.String()
}
