package interp

import (
	"context"
)

type Cmd interface {
	Execute(ctx context.Context, d *RuntimeData) (Outcome, error)
}

type CmdRequire struct {
	Features []string
}

func (c CmdRequire) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	if !d.State.InProlog {
		return OutcomeContinue, &CommandError{Command: "require", Msg: "require is only allowed before other commands"}
	}
	return OutcomeContinue, nil
}

type CmdStop struct{}

func (CmdStop) Execute(context.Context, *RuntimeData) (Outcome, error) {
	return OutcomeStopped, nil
}

type CmdIf struct {
	Test  Test
	Block Block
}

func (CmdIf) chainRole() chainRole { return chainOpen }

func (c CmdIf) Execute(ctx context.Context, d *RuntimeData) (Outcome, error) {
	return runBranch(ctx, d, c.Test, c.Block)
}

type CmdElsif struct {
	Test  Test
	Block Block
}

func (CmdElsif) chainRole() chainRole { return chainContinue }

func (c CmdElsif) Execute(ctx context.Context, d *RuntimeData) (Outcome, error) {
	switch d.chain.current() {
	case NoOpenChain:
		return OutcomeContinue, &CommandError{Command: "elsif", Msg: "unexpected command"}
	case ChainOpenTrue:
		return OutcomeContinue, nil
	}
	return runBranch(ctx, d, c.Test, c.Block)
}

type CmdElse struct {
	Block Block
}

func (CmdElse) chainRole() chainRole { return chainClose }

func (c CmdElse) Execute(ctx context.Context, d *RuntimeData) (Outcome, error) {
	state := d.chain.current()
	if state == NoOpenChain {
		return OutcomeContinue, &CommandError{Command: "else", Msg: "unexpected command"}
	}
	d.chain.set(NoOpenChain)
	if state == ChainOpenTrue {
		return OutcomeContinue, nil
	}
	return d.runBlock(ctx, c.Block)
}

// runBranch evaluates the test of an if or elsif and runs its block if the
// test passes. The chain of the enclosing block records the result.
func runBranch(ctx context.Context, d *RuntimeData, test Test, block Block) (Outcome, error) {
	ok, err := test.Check(ctx, d)
	if err != nil {
		return OutcomeContinue, err
	}
	if !ok {
		d.chain.set(ChainOpenFalse)
		return OutcomeContinue, nil
	}
	d.chain.set(ChainOpenTrue)
	return d.runBlock(ctx, block)
}
