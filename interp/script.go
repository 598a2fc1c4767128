package interp

import (
	"slices"
	"strings"

	"github.com/sieveworks/go-sieve/parser"
)

// Statement is a loaded command together with its position in the script.
type Statement struct {
	Name  string
	Cmd   Cmd
	Coord parser.Coordinate
}

// Block is a loaded sequence of commands.
type Block []Statement

// Script is a parsed and validated script. It is not modified by
// evaluation and can be evaluated concurrently against many messages.
type Script struct {
	tree *parser.Start
	reg  *Registries
	opts *Options

	required map[string]struct{}
	block    Block

	// Only used during loading.
	requireAllowed bool
}

// LoadScript runs the validation pass over the tree and binds every command
// and test to its implementation. Nothing is executed. The first violation
// is returned.
func LoadScript(tree *parser.Start, reg *Registries, opts *Options) (*Script, error) {
	if opts == nil {
		opts = &Options{}
	}
	s := &Script{
		tree:           tree,
		reg:            reg,
		opts:           opts,
		required:       make(map[string]struct{}),
		requireAllowed: true,
	}

	var err error
	s.block, err = s.loadBlock(tree.Block, true)
	if err != nil {
		return nil, err
	}
	s.requireAllowed = false
	return s, nil
}

func (s *Script) RequiresExtension(name string) bool {
	_, ok := s.required[strings.ToLower(name)]
	return ok
}

// Extensions returns the sorted list of required extensions.
func (s *Script) Extensions() []string {
	exts := make([]string, 0, len(s.required))
	for ext := range s.required {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Tree returns the syntax tree the script was loaded from.
func (s *Script) Tree() *parser.Start {
	return s.tree
}

func (s *Script) Registries() *Registries {
	return s.reg
}

func (s *Script) loadBlock(b *parser.Block, top bool) (Block, error) {
	if b == nil || b.Commands == nil {
		return nil, nil
	}

	loaded := make(Block, 0, len(b.Commands.List))
	prev := ""
	for _, cmd := range b.Commands.List {
		name := strings.ToLower(cmd.Name)
		entry, err := s.reg.Commands.Lookup(name)
		if err != nil {
			return nil, &LookupError{Kind: "command", Name: cmd.Name, Coord: cmd.Coord}
		}

		if name == "require" {
			if !top || !s.requireAllowed {
				return nil, &CommandError{Command: name, Msg: "require is only allowed before other commands", Coord: cmd.Coord}
			}
		} else {
			s.requireAllowed = false
		}

		if (name == "elsif" || name == "else") && prev != "if" && prev != "elsif" {
			return nil, &CommandError{Command: name, Msg: "unexpected command", Coord: cmd.Coord}
		}

		if entry.Extension != "" && !entry.Implicit && !s.RequiresExtension(entry.Extension) {
			return nil, &CommandError{Command: name, Msg: "missing require '" + entry.Extension + "'", Coord: cmd.Coord}
		}

		impl, err := entry.Impl(s, cmd)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, Statement{Name: name, Cmd: impl, Coord: cmd.Coord})
		prev = name
	}
	return loaded, nil
}

func (s *Script) loadTest(t *parser.Test) (Test, error) {
	name := strings.ToLower(t.Name)
	entry, err := s.reg.Tests.Lookup(name)
	if err != nil {
		return nil, &LookupError{Kind: "test", Name: t.Name, Coord: t.Coord}
	}
	if entry.Extension != "" && !entry.Implicit && !s.RequiresExtension(entry.Extension) {
		return nil, &CommandError{Command: name, Msg: "missing require '" + entry.Extension + "'", Coord: t.Coord}
	}
	return entry.Impl(s, t)
}

// requireExtension is used by loaders for tagged arguments that belong to
// an extension, such as :copy or :regex.
func (s *Script) requireExtension(ext string, coord parser.Coordinate) error {
	if !s.RequiresExtension(ext) {
		return &CommandError{Msg: "missing require '" + ext + "'", Coord: coord}
	}
	return nil
}
