package lexer

import (
	"fmt"
	"io"
	"math"
	"strings"
)

type Options struct {
	// Filename is used only in error messages and positions.
	Filename string
	// MaxTokens limits the size of the script. Zero means no limit.
	MaxTokens int
}

type scanner struct {
	src  string
	off  int
	line int
	col  int
	file string
}

func (s *scanner) pos() Position {
	return Position{File: s.file, Line: s.line, Col: s.col}
}

func (s *scanner) eof() bool {
	return s.off >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) peekAt(n int) byte {
	if s.off+n >= len(s.src) {
		return 0
	}
	return s.src[s.off+n]
}

func (s *scanner) advance() byte {
	c := s.src[s.off]
	s.off++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

// Lex reads the whole script and splits it into tokens. The first lexical
// error aborts lexing.
func Lex(r io.Reader, opts *Options) ([]Token, error) {
	if opts == nil {
		opts = &Options{}
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lexer: read script: %w", err)
	}

	s := &scanner{src: string(src), line: 1, col: 1, file: opts.Filename}
	var toks []Token
	for {
		if err := s.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if s.eof() {
			return toks, nil
		}
		if opts.MaxTokens > 0 && len(toks) >= opts.MaxTokens {
			return nil, ErrorAt(s.pos(), "too many tokens (limit is %d)", opts.MaxTokens)
		}

		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

func (s *scanner) skipSpaceAndComments() error {
	for !s.eof() {
		switch c := s.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.advance()
		case c == '#':
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		case c == '/' && s.peekAt(1) == '*':
			start := s.pos()
			s.advance()
			s.advance()
			for {
				if s.eof() {
					return ErrorAt(start, "unterminated bracket comment")
				}
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

var punctuation = map[byte]Kind{
	'[': LeftBracket,
	']': RightBracket,
	'{': LeftCurly,
	'}': RightCurly,
	'(': LeftParen,
	')': RightParen,
	';': Semicolon,
	',': Comma,
}

func (s *scanner) next() (Token, error) {
	start := s.pos()
	c := s.peek()

	if kind, ok := punctuation[c]; ok {
		s.advance()
		return Token{Kind: kind, Text: string(c), Start: start, End: start}, nil
	}

	switch {
	case c == '"':
		return s.quoted()
	case c == ':':
		s.advance()
		if !isIdentStart(s.peek()) {
			return Token{}, ErrorAt(start, "expected tag name after ':'")
		}
		name := s.identifier()
		return Token{Kind: Tag, Text: name, Start: start, End: s.pos()}, nil
	case isDigit(c):
		return s.number()
	case isIdentStart(c):
		name := s.identifier()
		if strings.EqualFold(name, "text") && s.peek() == ':' {
			s.advance()
			return s.multiline(start)
		}
		return Token{Kind: Identifier, Text: name, Start: start, End: s.pos()}, nil
	}

	return Token{}, ErrorAt(start, "unexpected character %q", c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (s *scanner) identifier() string {
	begin := s.off
	for !s.eof() && isIdentChar(s.peek()) {
		s.advance()
	}
	return s.src[begin:s.off]
}

// quoted decodes a quoted string. Only \" and \\ are escapes, any other
// backslash is kept as is.
func (s *scanner) quoted() (Token, error) {
	start := s.pos()
	s.advance()

	var b strings.Builder
	for {
		if s.eof() {
			return Token{}, ErrorAt(start, "unterminated quoted string")
		}
		c := s.advance()
		switch c {
		case '"':
			return Token{Kind: String, Text: b.String(), Start: start, End: s.pos()}, nil
		case '\\':
			if n := s.peek(); n == '"' || n == '\\' {
				b.WriteByte(s.advance())
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// multiline decodes a text: literal. The "text:" prefix is already consumed.
// Lines are returned CRLF-terminated, a line consisting of a single "." ends
// the literal and one leading dot is removed from every other line starting
// with ".".
func (s *scanner) multiline(start Position) (Token, error) {
	for s.peek() == ' ' || s.peek() == '\t' {
		s.advance()
	}
	if s.peek() == '#' {
		for !s.eof() && s.peek() != '\n' {
			s.advance()
		}
	}
	if s.peek() == '\r' {
		s.advance()
	}
	if s.peek() != '\n' {
		return Token{}, ErrorAt(s.pos(), "expected line break after text:")
	}
	s.advance()

	var b strings.Builder
	for {
		if s.eof() {
			return Token{}, ErrorAt(start, "unterminated multi-line string")
		}
		begin := s.off
		for !s.eof() && s.peek() != '\n' {
			s.advance()
		}
		line := strings.TrimSuffix(s.src[begin:s.off], "\r")
		if !s.eof() {
			s.advance()
		}

		if line == "." {
			return Token{Kind: String, Text: b.String(), Start: start, End: s.pos()}, nil
		}
		line = strings.TrimPrefix(line, ".")
		b.WriteString(line)
		b.WriteString("\r\n")
	}
}

func (s *scanner) number() (Token, error) {
	start := s.pos()
	var n int64
	for !s.eof() && isDigit(s.peek()) {
		d := int64(s.advance() - '0')
		if n > (math.MaxInt64-d)/10 {
			return Token{}, ErrorAt(start, "number is too big")
		}
		n = n*10 + d
	}

	var mult int64 = 1
	switch s.peek() {
	case 'K', 'k':
		mult = 1024
	case 'M', 'm':
		mult = 1024 * 1024
	case 'G', 'g':
		mult = 1024 * 1024 * 1024
	}
	if mult != 1 {
		s.advance()
		if n > math.MaxInt64/mult {
			return Token{}, ErrorAt(start, "number is too big")
		}
		n *= mult
	}
	if isIdentChar(s.peek()) {
		return Token{}, ErrorAt(s.pos(), "unexpected character %q after number", s.peek())
	}

	return Token{Kind: Number, Num: n, Start: start, End: s.pos()}, nil
}
