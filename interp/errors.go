package interp

import (
	"fmt"

	"github.com/sieveworks/go-sieve/parser"
)

func withCoord(msg string, coord parser.Coordinate) string {
	if coord.Start.Line == 0 {
		return msg
	}
	return msg + " " + coord.String()
}

// LookupError reports a command, test, comparator or feature name that is
// not present in the registries.
type LookupError struct {
	Kind  string
	Name  string
	Coord parser.Coordinate
}

func (e *LookupError) Error() string {
	return withCoord(fmt.Sprintf("%s %q is not mapped", e.Kind, e.Name), e.Coord)
}

// CommandError is a structural violation: misplaced require, out of sequence
// elsif/else, a missing require for an extension, conflicting actions.
type CommandError struct {
	Command string
	Msg     string
	Coord   parser.Coordinate
	Err     error
}

func (e *CommandError) Error() string {
	msg := e.Msg
	if e.Command != "" {
		msg = e.Command + ": " + msg
	}
	return withCoord(msg, e.Coord)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// SyntaxError reports arguments of the wrong shape, count or type.
type SyntaxError struct {
	Msg   string
	Coord parser.Coordinate
}

func (e *SyntaxError) Error() string {
	return withCoord(e.Msg, e.Coord)
}

func syntaxErrorf(coord parser.Coordinate, format string, args ...interface{}) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Coord: coord}
}

// MailError wraps failures to read data from the message or the envelope.
type MailError struct {
	Op    string
	Err   error
	Coord parser.Coordinate
}

func (e *MailError) Error() string {
	return withCoord(fmt.Sprintf("mail: %s: %v", e.Op, e.Err), e.Coord)
}

func (e *MailError) Unwrap() error {
	return e.Err
}

// ActionError is returned by ActionList.Execute when the host fails to
// carry out an action. Remaining actions are not executed.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action.ActionName(), e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
