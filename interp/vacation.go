package interp

import (
	"context"
)

const defaultVacationDays = 7

// CmdVacation represents the vacation command as defined in RFC 5230.
type CmdVacation struct {
	// Days specifies the minimum number of days between autoresponses to
	// the same sender. Default is 7 days if not specified.
	Days int64

	// Subject specifies the subject to be used in the autoresponse. If not
	// specified, the host derives one from the subject of the original
	// message (RFC 5230 section 4.5).
	Subject string

	// From specifies the address to be used in the From header of the
	// autoresponse. If not specified, the host chooses one.
	From string

	// Addresses specifies additional addresses that are considered "my"
	// addresses. They are passed to the host unchanged.
	Addresses []string

	// Mime indicates that the reason string is a MIME-formatted message.
	Mime bool

	// Handle identifies this vacation response. If not set, responses with
	// the same reason share a handle.
	Handle string

	// Reason is the message body to be used in the autoresponse.
	Reason string
}

func (c CmdVacation) Execute(_ context.Context, d *RuntimeData) (Outcome, error) {
	return OutcomeContinue, d.addAction(Vacation{
		Reason:    c.Reason,
		Subject:   c.Subject,
		From:      c.From,
		Handle:    c.Handle,
		Days:      c.Days,
		Mime:      c.Mime,
		Addresses: c.Addresses,
	}, false)
}
