package interp

import (
	"log/slog"
)

type Options struct {
	// EnabledExtensions limits the extensions scripts may require.
	// If nil, every registered extension is enabled.
	EnabledExtensions []string

	// MaxRedirects is the maximum number of redirect actions a single
	// evaluation may produce. Zero means no limit.
	MaxRedirects int

	// RegexLimits bounds :regex patterns. Zero fields take the values of
	// DefaultRegexLimits.
	RegexLimits RegexLimits

	// Logger receives debug output about evaluation. Nil discards it.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Options) regexLimits() RegexLimits {
	limits := DefaultRegexLimits
	if o == nil {
		return limits
	}
	if o.RegexLimits.MaxPatternLength > 0 {
		limits.MaxPatternLength = o.RegexLimits.MaxPatternLength
	}
	return limits
}
