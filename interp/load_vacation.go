package interp

import (
	"github.com/emersion/go-message/mail"

	"github.com/sieveworks/go-sieve/parser"
)

// loadVacation loads the vacation command as defined in RFC 5230.
// The vacation command has the following syntax:
//
//	vacation [":days" number] [":subject" string]
//	         [":from" string] [":addresses" string-list]
//	         [":mime"] [":handle" string] <reason: string>
func loadVacation(s *Script, pcmd *parser.Command) (Cmd, error) {
	cmd := CmdVacation{
		Days: defaultVacationDays,
	}
	err := LoadSpec(s, &Spec{
		Tags: map[string]SpecTag{
			"days": {
				NeedsValue: true,
				MatchNum: func(val int64) {
					cmd.Days = val
				},
			},
			"subject": {
				NeedsValue:  true,
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Subject = val[0]
				},
			},
			"from": {
				NeedsValue:  true,
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.From = val[0]
				},
			},
			"addresses": {
				NeedsValue:  true,
				MinStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Addresses = val
				},
			},
			"mime": {
				MatchBool: func() {
					cmd.Mime = true
				},
			},
			"handle": {
				NeedsValue:  true,
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Handle = val[0]
				},
			},
		},
		Pos: []SpecPosArg{
			{
				MinStrCount: 1,
				MaxStrCount: 1,
				MatchStr: func(val []string) {
					cmd.Reason = val[0]
				},
			},
		},
	}, pcmd.Coord, pcmd.Args, pcmd.Block)
	if err != nil {
		return nil, err
	}

	// RFC 5230 Section 4.1: a value of 0 is treated as 1.
	if cmd.Days < 1 {
		cmd.Days = 1
	}
	if cmd.From != "" {
		if _, err := mail.ParseAddress(cmd.From); err != nil {
			return nil, syntaxErrorf(pcmd.Coord, "vacation: invalid :from address %q: %v", cmd.From, err)
		}
	}

	return cmd, nil
}
