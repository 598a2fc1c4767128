package interp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sieveworks/go-sieve/parser"
)

// RuntimeData is the state of one evaluation. It must not be shared between
// concurrent evaluations.
type RuntimeData struct {
	Script   *Script
	Msg      Message
	Envelope Envelope

	State   CommandState
	Actions ActionList

	chain     chainStack
	coord     parser.Coordinate
	redirects int
	logger    *slog.Logger
}

// NewRuntimeData prepares an evaluation of s. env may be nil if the script
// does not use the envelope test.
func NewRuntimeData(s *Script, env Envelope, msg Message) *RuntimeData {
	return &RuntimeData{
		Script:   s,
		Msg:      msg,
		Envelope: env,
		logger:   s.opts.logger(),
	}
}

// Coord returns the position of the command being executed.
func (d *RuntimeData) Coord() parser.Coordinate {
	return d.coord
}

func (d *RuntimeData) reset() {
	d.State = CommandState{InProlog: true, ImplicitKeep: true}
	d.Actions = nil
	d.chain.reset()
	d.coord = parser.Coordinate{}
	d.redirects = 0
}

// addAction records a terminal action. keepImplicit is set for actions
// with :copy.
func (d *RuntimeData) addAction(a Action, keepImplicit bool) error {
	_, isReject := a.(Reject)
	if isReject && d.State.HasActions {
		return &CommandError{Command: "reject", Msg: "reject cannot be combined with other actions", Coord: d.coord}
	}
	if !isReject && d.State.Rejected {
		return &CommandError{Command: a.ActionName(), Msg: "action cannot be combined with reject", Coord: d.coord}
	}
	if r, ok := a.(Redirect); ok && d.Script.opts.MaxRedirects > 0 {
		if d.redirects >= d.Script.opts.MaxRedirects {
			return &CommandError{Command: "redirect", Msg: "too many redirects", Coord: d.coord}
		}
		if d.Actions.Add(r) {
			d.redirects++
		}
	} else {
		d.Actions.Add(a)
	}

	if isReject {
		d.State.Rejected = true
	}
	d.State.HasActions = true
	if !keepImplicit {
		d.State.ImplicitKeep = false
	}
	return nil
}

// annotate attaches the coordinate of the current command to errors that
// do not carry one yet.
func (d *RuntimeData) annotate(name string, err error) error {
	var (
		cmdErr    *CommandError
		syntaxErr *SyntaxError
		mailErr   *MailError
		lookupErr *LookupError
	)
	switch {
	case errors.As(err, &cmdErr):
		if cmdErr.Coord.Start.Line == 0 {
			cmdErr.Coord = d.coord
		}
		return err
	case errors.As(err, &syntaxErr):
		if syntaxErr.Coord.Start.Line == 0 {
			syntaxErr.Coord = d.coord
		}
		return err
	case errors.As(err, &mailErr):
		if mailErr.Coord.Start.Line == 0 {
			mailErr.Coord = d.coord
		}
		return err
	case errors.As(err, &lookupErr):
		return err
	}
	return &CommandError{Command: name, Msg: err.Error(), Coord: d.coord, Err: err}
}

func (d *RuntimeData) runBlock(ctx context.Context, b Block) (Outcome, error) {
	d.chain.push()
	defer d.chain.pop()

	for _, st := range b {
		if err := ctx.Err(); err != nil {
			return OutcomeContinue, err
		}

		d.coord = st.Coord
		if st.Name != "require" {
			d.State.InProlog = false
		}

		out, err := st.Cmd.Execute(ctx, d)
		if err != nil {
			d.logger.Debug("command failed", "command", st.Name, "coord", st.Coord.String(), "error", err)
			return OutcomeContinue, d.annotate(st.Name, err)
		}
		if _, ok := st.Cmd.(chainLink); !ok {
			d.chain.set(NoOpenChain)
		}
		if out == OutcomeStopped {
			return OutcomeStopped, nil
		}
	}
	return OutcomeContinue, nil
}

// Evaluate walks the script and returns the resulting actions. If no action
// cancelled the implicit keep, a Keep action is appended. d can be reused
// for another evaluation afterwards.
func (s *Script) Evaluate(ctx context.Context, d *RuntimeData) (ActionList, error) {
	d.Script = s
	d.reset()
	if d.logger == nil {
		d.logger = s.opts.logger()
	}

	out, err := d.runBlock(ctx, s.block)
	if err != nil {
		return nil, err
	}
	if out == OutcomeStopped {
		d.logger.Debug("evaluation stopped", "coord", d.coord.String())
	}

	if d.State.ImplicitKeep {
		d.logger.Debug("implicit keep")
		d.Actions.Add(Keep{})
	}
	return d.Actions, nil
}

// Run evaluates the script and executes the resulting actions in order
// through exec.
func (s *Script) Run(ctx context.Context, d *RuntimeData, exec ActionExecutor) (ActionList, error) {
	actions, err := s.Evaluate(ctx, d)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("executing actions", "actions", actions.String())
	if err := actions.Execute(ctx, exec); err != nil {
		return actions, err
	}
	return actions, nil
}
