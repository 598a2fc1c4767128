package sieve

import (
	"io"

	"github.com/sieveworks/go-sieve/interp"
	"github.com/sieveworks/go-sieve/lexer"
	"github.com/sieveworks/go-sieve/parser"
)

type (
	Script      = interp.Script
	RuntimeData = interp.RuntimeData
	Registries  = interp.Registries
	ActionList  = interp.ActionList

	Message  = interp.Message
	Envelope = interp.Envelope

	Options struct {
		Lexer  lexer.Options
		Parser parser.Options
		Interp interp.Options
	}
)

func DefaultOptions() Options {
	return Options{
		Lexer: lexer.Options{
			MaxTokens: 5000,
		},
		Parser: parser.Options{
			MaxBlockNesting: 15,
			MaxTestNesting:  15,
		},
		Interp: interp.Options{
			MaxRedirects: 5,
			RegexLimits:  interp.DefaultRegexLimits,
		},
	}
}

// Parse lexes and parses a script without validating it.
func Parse(r io.Reader, opts Options) (*parser.Start, error) {
	toks, err := lexer.Lex(r, &opts.Lexer)
	if err != nil {
		return nil, err
	}
	return parser.Parse(lexer.NewStream(toks), &opts.Parser)
}

// NewRegistries builds the command, test and comparator registries for the
// extensions enabled in opts.
func NewRegistries(opts Options) (*Registries, error) {
	return interp.NewRegistries(&opts.Interp)
}

// Load parses and validates a script using registries built from opts.
func Load(r io.Reader, opts Options) (*Script, error) {
	reg, err := NewRegistries(opts)
	if err != nil {
		return nil, err
	}
	return LoadWith(r, reg, opts)
}

// LoadWith is like Load but uses existing registries, which can be shared
// by any number of scripts.
func LoadWith(r io.Reader, reg *Registries, opts Options) (*Script, error) {
	tree, err := Parse(r, opts)
	if err != nil {
		return nil, err
	}
	return interp.LoadScript(tree, reg, &opts.Interp)
}

func NewRuntimeData(s *Script, e interp.Envelope, msg interp.Message) *interp.RuntimeData {
	return interp.NewRuntimeData(s, e, msg)
}
