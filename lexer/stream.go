package lexer

// Stream is a cursor over a token slice, consumed by the parser.
type Stream struct {
	toks []Token
	pos  int
	last Position
}

func NewStream(toks []Token) *Stream {
	s := &Stream{toks: toks, last: Position{Line: 1, Col: 1}}
	if len(toks) != 0 {
		s.last = toks[len(toks)-1].End
	}
	return s
}

// Next returns the next token and advances. ok is false at the end of input.
func (s *Stream) Next() (tok Token, ok bool) {
	if s.pos >= len(s.toks) {
		return Token{}, false
	}
	tok = s.toks[s.pos]
	s.pos++
	return tok, true
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() (tok Token, ok bool) {
	if s.pos >= len(s.toks) {
		return Token{}, false
	}
	return s.toks[s.pos], true
}

// EOFPos is the position reported for errors at the end of input.
func (s *Stream) EOFPos() Position {
	return s.last
}
