package interp

import (
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/sieveworks/go-sieve/parser"
)

type (
	CmdLoader  func(s *Script, cmd *parser.Command) (Cmd, error)
	TestLoader func(s *Script, test *parser.Test) (Test, error)
)

var commands = map[string]Entry[CmdLoader]{
	// RFC 5228
	"require":  {Impl: loadRequire},
	"if":       {Impl: loadIf},
	"elsif":    {Impl: loadElsif},
	"else":     {Impl: loadElse},
	"stop":     {Impl: loadStop},
	"keep":     {Impl: loadKeep},
	"discard":  {Impl: loadDiscard},
	"redirect": {Impl: loadRedirect},
	"fileinto": {Extension: "fileinto", Impl: loadFileInto},
	// RFC 5429
	"reject": {Extension: "reject", Impl: loadReject},
	// RFC 5230
	"vacation": {Extension: "vacation", Impl: loadVacation},
}

var tests = map[string]Entry[TestLoader]{
	// RFC 5228
	"address":  {Impl: loadAddressTest},
	"allof":    {Impl: loadAllOfTest},
	"anyof":    {Impl: loadAnyOfTest},
	"envelope": {Extension: "envelope", Impl: loadEnvelopeTest},
	"exists":   {Impl: loadExistsTest},
	"false":    {Impl: loadFalseTest},
	"true":     {Impl: loadTrueTest},
	"header":   {Impl: loadHeaderTest},
	"not":      {Impl: loadNotTest},
	"size":     {Impl: loadSizeTest},
	// RFC 5173
	"body": {Extension: "body", Impl: loadBodyTest},
}

func loadRequire(s *Script, pcmd *parser.Command) (Cmd, error) {
	var features []string
	err := LoadSpec(s, &Spec{
		Pos: []SpecPosArg{
			{
				MinStrCount: 1,
				MatchStr: func(val []string) {
					features = val
				},
			},
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	if err != nil {
		return nil, err
	}

	for _, f := range features {
		f = strings.ToLower(f)
		if !s.reg.Supports(f) {
			return nil, &LookupError{Kind: "feature", Name: f, Coord: pcmd.Coord}
		}
		s.required[f] = struct{}{}
	}
	return CmdRequire{Features: features}, nil
}

func loadIf(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdIf{}
	err := LoadSpec(s, &Spec{
		AddTest: func(t Test) {
			cmd.Test = t
		},
		AddBlock: func(b Block) {
			cmd.Block = b
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return cmd, err
}

func loadElsif(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdElsif{}
	err := LoadSpec(s, &Spec{
		AddTest: func(t Test) {
			cmd.Test = t
		},
		AddBlock: func(b Block) {
			cmd.Block = b
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return cmd, err
}

func loadElse(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdElse{}
	err := LoadSpec(s, &Spec{
		AddBlock: func(b Block) {
			cmd.Block = b
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return cmd, err
}

func loadStop(s *Script, pcmd *parser.Command) (Cmd, error) {
	err := LoadSpec(s, &Spec{}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return CmdStop{}, err
}

func loadKeep(s *Script, pcmd *parser.Command) (Cmd, error) {
	err := LoadSpec(s, &Spec{}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return CmdKeep{}, err
}

func loadDiscard(s *Script, pcmd *parser.Command) (Cmd, error) {
	err := LoadSpec(s, &Spec{}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return CmdDiscard{}, err
}

func loadFileInto(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdFileInto{}
	err := LoadSpec(s, &Spec{
		Tags: map[string]SpecTag{
			"copy": {
				MatchBool: func() {
					cmd.Copy = true
				},
			},
		},
		Pos: []SpecPosArg{
			{
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Mailbox = val[0]
				},
			},
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	if err != nil {
		return nil, err
	}
	if cmd.Copy {
		if err := s.requireExtension("copy", pcmd.Coord); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func loadReject(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdReject{}
	err := LoadSpec(s, &Spec{
		Pos: []SpecPosArg{
			{
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Message = val[0]
				},
			},
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	return cmd, err
}

func loadRedirect(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdRedirect{}
	err := LoadSpec(s, &Spec{
		Tags: map[string]SpecTag{
			"copy": {
				MatchBool: func() {
					cmd.Copy = true
				},
			},
		},
		Pos: []SpecPosArg{
			{
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Address = val[0]
				},
			},
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	if err != nil {
		return nil, err
	}
	if cmd.Copy {
		if err := s.requireExtension("copy", pcmd.Coord); err != nil {
			return nil, err
		}
	}

	addr, err := mail.ParseAddress(cmd.Address)
	if err != nil {
		return nil, syntaxErrorf(pcmd.Coord, "redirect: invalid address %q: %v", cmd.Address, err)
	}
	cmd.Address = addr.Address
	return cmd, nil
}
