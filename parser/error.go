package parser

import (
	"fmt"

	"github.com/sieveworks/go-sieve/lexer"
)

// Error is a grammar violation found by Parse.
type Error struct {
	Coord Coordinate
	Msg   string
}

func (e *Error) Error() string {
	if e.Coord.Start.File != "" {
		return fmt.Sprintf("%s: %s %v", e.Coord.Start.File, e.Msg, e.Coord)
	}
	return fmt.Sprintf("%s %v", e.Msg, e.Coord)
}

func ErrorAt(coord Coordinate, format string, args ...interface{}) error {
	return &Error{Coord: coord, Msg: fmt.Sprintf(format, args...)}
}

func errorAtPos(pos lexer.Position, format string, args ...interface{}) error {
	return ErrorAt(Coordinate{Start: pos, End: pos}, format, args...)
}
