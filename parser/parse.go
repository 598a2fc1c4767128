package parser

import (
	"github.com/sieveworks/go-sieve/lexer"
)

type Options struct {
	// MaxBlockNesting limits how deep { } blocks can be nested. Zero means
	// no limit.
	MaxBlockNesting int
	// MaxTestNesting limits how deep tests can be nested inside other tests
	// (allof, anyof, not). Zero means no limit.
	MaxTestNesting int
}

type parser struct {
	s    *lexer.Stream
	opts *Options
}

// Parse builds the syntax tree from the token stream. The first grammar
// violation aborts parsing and no partial tree is returned.
func Parse(s *lexer.Stream, opts *Options) (*Start, error) {
	if opts == nil {
		opts = &Options{}
	}
	p := &parser{s: s, opts: opts}

	startPos := s.EOFPos()
	if tok, ok := s.Peek(); ok {
		startPos = tok.Start
	}

	cmds, err := p.commands(0, false)
	if err != nil {
		return nil, err
	}
	return &Start{
		Block: &Block{
			Commands: cmds,
			Coord:    Coordinate{Start: startPos, End: s.EOFPos()},
		},
	}, nil
}

func (p *parser) unexpectedEOF() error {
	return errorAtPos(p.s.EOFPos(), "unexpected end of script")
}

// commands reads commands up to the end of input (top level) or up to the
// closing brace of a block, which is left in the stream.
func (p *parser) commands(depth int, inBlock bool) (*Commands, error) {
	cmds := &Commands{}
	for {
		tok, ok := p.s.Peek()
		if !ok {
			if inBlock {
				return nil, p.unexpectedEOF()
			}
			return cmds, nil
		}
		if tok.Kind == lexer.RightCurly {
			if !inBlock {
				return nil, errorAtPos(tok.Start, "unexpected '}'")
			}
			return cmds, nil
		}

		cmd, err := p.command(depth)
		if err != nil {
			return nil, err
		}
		cmds.List = append(cmds.List, cmd)
	}
}

func (p *parser) command(depth int) (*Command, error) {
	name, ok := p.s.Next()
	if !ok {
		return nil, p.unexpectedEOF()
	}
	if name.Kind != lexer.Identifier {
		return nil, errorAtPos(name.Start, "expected command name, got %v", name)
	}

	args, err := p.arguments(0)
	if err != nil {
		return nil, err
	}

	cmd := &Command{Name: name.Text, Args: args}

	term, ok := p.s.Next()
	if !ok {
		return nil, p.unexpectedEOF()
	}
	switch term.Kind {
	case lexer.Semicolon:
		cmd.Coord = Coordinate{Start: name.Start, End: term.End}
	case lexer.LeftCurly:
		if p.opts.MaxBlockNesting > 0 && depth+1 > p.opts.MaxBlockNesting {
			return nil, errorAtPos(term.Start, "too many nested blocks (limit is %d)", p.opts.MaxBlockNesting)
		}
		block, err := p.block(term, depth+1)
		if err != nil {
			return nil, err
		}
		cmd.Block = block
		cmd.Coord = Coordinate{Start: name.Start, End: block.Coord.End}
	default:
		return nil, errorAtPos(term.Start, "expected ';' or '{' after command %s, got %v", name.Text, term)
	}
	return cmd, nil
}

// block parses the rest of a block, open is the already consumed '{'.
func (p *parser) block(open lexer.Token, depth int) (*Block, error) {
	cmds, err := p.commands(depth, true)
	if err != nil {
		return nil, err
	}
	closing, ok := p.s.Next()
	if !ok {
		return nil, p.unexpectedEOF()
	}
	return &Block{
		Commands: cmds,
		Coord:    Coordinate{Start: open.Start, End: closing.End},
	}, nil
}

func (p *parser) arguments(testDepth int) (*Arguments, error) {
	args := &Arguments{}
	for {
		tok, ok := p.s.Peek()
		if !ok {
			return args, nil
		}

		switch tok.Kind {
		case lexer.Tag:
			p.s.Next()
			args.Args = append(args.Args, TagArg{Name: tok.Text, Coord: Coordinate{Start: tok.Start, End: tok.End}})
		case lexer.Number:
			p.s.Next()
			args.Args = append(args.Args, NumberArg{Value: tok.Num, Coord: Coordinate{Start: tok.Start, End: tok.End}})
		case lexer.String:
			p.s.Next()
			args.Args = append(args.Args, StringArg{Value: tok.Text, Coord: Coordinate{Start: tok.Start, End: tok.End}})
		case lexer.LeftBracket:
			p.s.Next()
			list, err := p.stringList(tok)
			if err != nil {
				return nil, err
			}
			args.Args = append(args.Args, list)
		case lexer.Identifier:
			test, err := p.test(testDepth + 1)
			if err != nil {
				return nil, err
			}
			args.Tests = &TestList{Tests: []*Test{test}, Coord: test.Coord}
			return args, nil
		case lexer.LeftParen:
			p.s.Next()
			list, err := p.testList(tok, testDepth+1)
			if err != nil {
				return nil, err
			}
			args.Tests = list
			return args, nil
		default:
			return args, nil
		}
	}
}

func (p *parser) stringList(open lexer.Token) (StringListArg, error) {
	list := StringListArg{}
	for {
		tok, ok := p.s.Next()
		if !ok {
			return list, p.unexpectedEOF()
		}
		if tok.Kind != lexer.String {
			return list, errorAtPos(tok.Start, "expected string in string list, got %v", tok)
		}
		list.Values = append(list.Values, tok.Text)

		sep, ok := p.s.Next()
		if !ok {
			return list, p.unexpectedEOF()
		}
		switch sep.Kind {
		case lexer.Comma:
		case lexer.RightBracket:
			list.Coord = Coordinate{Start: open.Start, End: sep.End}
			return list, nil
		default:
			return list, errorAtPos(sep.Start, "expected ',' or ']' in string list, got %v", sep)
		}
	}
}

func (p *parser) test(depth int) (*Test, error) {
	if p.opts.MaxTestNesting > 0 && depth > p.opts.MaxTestNesting {
		tok, _ := p.s.Peek()
		return nil, errorAtPos(tok.Start, "too many nested tests (limit is %d)", p.opts.MaxTestNesting)
	}

	name, ok := p.s.Next()
	if !ok {
		return nil, p.unexpectedEOF()
	}
	if name.Kind != lexer.Identifier {
		return nil, errorAtPos(name.Start, "expected test name, got %v", name)
	}

	args, err := p.arguments(depth)
	if err != nil {
		return nil, err
	}

	end := name.End
	if n := len(args.Args); n != 0 {
		end = args.Args[n-1].Coordinate().End
	}
	if args.Tests != nil {
		end = args.Tests.Coord.End
	}
	return &Test{
		Name:  name.Text,
		Args:  args,
		Coord: Coordinate{Start: name.Start, End: end},
	}, nil
}

func (p *parser) testList(open lexer.Token, depth int) (*TestList, error) {
	list := &TestList{Parenthesized: true}
	for {
		test, err := p.test(depth)
		if err != nil {
			return nil, err
		}
		list.Tests = append(list.Tests, test)

		sep, ok := p.s.Next()
		if !ok {
			return nil, p.unexpectedEOF()
		}
		switch sep.Kind {
		case lexer.Comma:
		case lexer.RightParen:
			list.Coord = Coordinate{Start: open.Start, End: sep.End}
			return list, nil
		default:
			return nil, errorAtPos(sep.Start, "expected ',' or ')' in test list, got %v", sep)
		}
	}
}
