package lexer

import (
	"fmt"
	"strconv"
)

type Kind int

const (
	Identifier Kind = iota
	Tag
	String
	Number
	LeftBracket
	RightBracket
	LeftCurly
	RightCurly
	LeftParen
	RightParen
	Semicolon
	Comma
)

var kindNames = map[Kind]string{
	Identifier:   "identifier",
	Tag:          "tag",
	String:       "string",
	Number:       "number",
	LeftBracket:  "'['",
	RightBracket: "']'",
	LeftCurly:    "'{'",
	RightCurly:   "'}'",
	LeftParen:    "'('",
	RightParen:   "')'",
	Semicolon:    "';'",
	Comma:        "','",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Position is a 1-based location in the script source.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("Line %d column %d.", p.Line, p.Col)
}

// Token is a single lexical unit. Text holds the decoded value for strings,
// the identifier or tag name (without the colon) otherwise. Num is set only
// for Number tokens, with the quantifier already applied.
type Token struct {
	Kind  Kind
	Text  string
	Num   int64
	Start Position
	End   Position
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier:
		return "identifier " + t.Text
	case Tag:
		return "tag :" + t.Text
	case String:
		return "string " + strconv.Quote(t.Text)
	case Number:
		return "number " + strconv.FormatInt(t.Num, 10)
	default:
		return t.Kind.String()
	}
}

// Error is a lexical error.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	if e.Pos.File != "" {
		return fmt.Sprintf("%s: lexer: %s %v", e.Pos.File, e.Msg, e.Pos)
	}
	return fmt.Sprintf("lexer: %s %v", e.Msg, e.Pos)
}

func ErrorAt(pos Position, format string, args ...interface{}) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
