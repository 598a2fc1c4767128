package interp

import (
	"context"
)

type CmdKeep struct{}

func (CmdKeep) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(Keep{}, false)
}

type CmdDiscard struct{}

func (CmdDiscard) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(Discard{}, false)
}

type CmdFileInto struct {
	Mailbox string
	Copy    bool
}

func (c CmdFileInto) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(FileInto{Mailbox: c.Mailbox}, c.Copy)
}

type CmdReject struct {
	Message string
}

func (c CmdReject) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(Reject{Message: c.Message}, false)
}

type CmdRedirect struct {
	Address string
	Copy    bool
}

func (c CmdRedirect) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(Redirect{Address: c.Address}, c.Copy)
}
