package parser

import (
	"fmt"

	"github.com/sieveworks/go-sieve/lexer"
)

// Coordinate is the source span of a node.
type Coordinate struct {
	Start lexer.Position
	End   lexer.Position
}

func (c Coordinate) String() string {
	return fmt.Sprintf("Line %d column %d.", c.Start.Line, c.Start.Col)
}

// Start is the root of a parsed script. The top level has no braces but is
// still represented as a Block.
type Start struct {
	Block *Block
}

type Block struct {
	Commands *Commands
	Coord    Coordinate
}

type Commands struct {
	List []*Command
}

type Command struct {
	Name  string
	Args  *Arguments
	Block *Block // nil if the command ends with ';'
	Coord Coordinate
}

// Arguments holds the plain arguments of a command or test followed by an
// optional test list.
type Arguments struct {
	Args  []Arg
	Tests *TestList
}

type Test struct {
	Name  string
	Args  *Arguments
	Coord Coordinate
}

// TestList is either a parenthesized list of tests or a single test given
// without parentheses.
type TestList struct {
	Tests         []*Test
	Parenthesized bool
	Coord         Coordinate
}

type Arg interface {
	Coordinate() Coordinate
}

type StringArg struct {
	Value string
	Coord Coordinate
}

func (a StringArg) Coordinate() Coordinate { return a.Coord }

type StringListArg struct {
	Values []string
	Coord  Coordinate
}

func (a StringListArg) Coordinate() Coordinate { return a.Coord }

type NumberArg struct {
	Value int64
	Coord Coordinate
}

func (a NumberArg) Coordinate() Coordinate { return a.Coord }

// TagArg is a ":name" argument. Name is stored without the colon.
type TagArg struct {
	Name  string
	Coord Coordinate
}

func (a TagArg) Coordinate() Coordinate { return a.Coord }
