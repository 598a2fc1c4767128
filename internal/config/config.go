package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	sieve "github.com/sieveworks/go-sieve"
	"github.com/sieveworks/go-sieve/interp"
	"github.com/sieveworks/go-sieve/internal/logging"
)

// Config holds the configuration of the sieve tools.
type Config struct {
	Sieve   SieveConfig    `koanf:"sieve" toml:"sieve"`
	Engine  EngineConfig   `koanf:"engine" toml:"engine"`
	Logging logging.Config `koanf:"logging" toml:"logging"`
}

// SieveConfig holds interpreter limits and the enabled extensions.
type SieveConfig struct {
	// Extensions lists the enabled extensions. Empty means all of them.
	Extensions      []string `koanf:"extensions" toml:"extensions"`
	MaxScriptSize   int64    `koanf:"max_script_size" toml:"max_script_size"` // Maximum script size in bytes
	MaxTokens       int      `koanf:"max_tokens" toml:"max_tokens"`
	MaxBlockNesting int      `koanf:"max_block_nesting" toml:"max_block_nesting"`
	MaxTestNesting  int      `koanf:"max_test_nesting" toml:"max_test_nesting"`
	MaxRedirects    int      `koanf:"max_redirects" toml:"max_redirects"`
	MaxRegexPattern int      `koanf:"max_regex_pattern" toml:"max_regex_pattern"` // Maximum :regex pattern length
}

// EngineConfig configures batch evaluation.
type EngineConfig struct {
	Workers          int    `koanf:"workers" toml:"workers"`                     // Concurrent evaluations, 0 means GOMAXPROCS
	MailboxSeparator string `koanf:"mailbox_separator" toml:"mailbox_separator"` // Hierarchy separator for fileinto
}

func DefaultConfig() *Config {
	def := sieve.DefaultOptions()
	return &Config{
		Sieve: SieveConfig{
			MaxScriptSize:   1 << 20,
			MaxTokens:       def.Lexer.MaxTokens,
			MaxBlockNesting: def.Parser.MaxBlockNesting,
			MaxTestNesting:  def.Parser.MaxTestNesting,
			MaxRedirects:    def.Interp.MaxRedirects,
			MaxRegexPattern: def.Interp.RegexLimits.MaxPatternLength,
		},
		Engine: EngineConfig{
			MailboxSeparator: "/",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the configuration file at path on top of the defaults. YAML
// and TOML files are supported, chosen by extension. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// Validate checks limits, logging settings and extension names.
func (c *Config) Validate() error {
	var errs []error
	limits := []struct {
		name  string
		value int64
	}{
		{"sieve.max_script_size", c.Sieve.MaxScriptSize},
		{"sieve.max_tokens", int64(c.Sieve.MaxTokens)},
		{"sieve.max_block_nesting", int64(c.Sieve.MaxBlockNesting)},
		{"sieve.max_test_nesting", int64(c.Sieve.MaxTestNesting)},
		{"sieve.max_redirects", int64(c.Sieve.MaxRedirects)},
		{"engine.workers", int64(c.Engine.Workers)},
	}
	for _, l := range limits {
		if l.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", l.name))
		}
	}
	if c.Sieve.MaxRegexPattern <= 0 {
		errs = append(errs, errors.New("sieve.max_regex_pattern must be positive"))
	}
	if c.Engine.MailboxSeparator == "" {
		errs = append(errs, errors.New("engine.mailbox_separator must not be empty"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}
	if len(c.Sieve.Extensions) > 0 {
		if _, err := interp.NewRegistries(&interp.Options{EnabledExtensions: c.Sieve.Extensions}); err != nil {
			errs = append(errs, fmt.Errorf("sieve.extensions: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SieveOptions converts the configuration to interpreter options.
func (c *Config) SieveOptions(logger *slog.Logger) sieve.Options {
	opts := sieve.DefaultOptions()
	opts.Lexer.MaxTokens = c.Sieve.MaxTokens
	opts.Parser.MaxBlockNesting = c.Sieve.MaxBlockNesting
	opts.Parser.MaxTestNesting = c.Sieve.MaxTestNesting
	opts.Interp.MaxRedirects = c.Sieve.MaxRedirects
	opts.Interp.RegexLimits = interp.RegexLimits{
		MaxPatternLength: c.Sieve.MaxRegexPattern,
	}
	if len(c.Sieve.Extensions) > 0 {
		opts.Interp.EnabledExtensions = c.Sieve.Extensions
	}
	opts.Interp.Logger = logger
	return opts
}
