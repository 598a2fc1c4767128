package interp

import (
	"context"
	"reflect"
	"strings"
)

// Action is a terminal action produced by a script.
type Action interface {
	ActionName() string
}

type Keep struct{}

func (Keep) ActionName() string { return "keep" }

type Discard struct{}

func (Discard) ActionName() string { return "discard" }

type FileInto struct {
	Mailbox string
}

func (FileInto) ActionName() string { return "fileinto" }

// Path returns the mailbox name rooted at INBOX, using sep as the hierarchy
// separator. "INBOX" itself is matched case-insensitively.
func (f FileInto) Path(sep string) string {
	mbox := strings.TrimPrefix(f.Mailbox, sep)
	if mbox == "" || strings.EqualFold(mbox, "INBOX") {
		return "INBOX"
	}
	if len(mbox) > len("INBOX") && strings.EqualFold(mbox[:len("INBOX")], "INBOX") &&
		strings.HasPrefix(mbox[len("INBOX"):], sep) {
		return "INBOX" + mbox[len("INBOX"):]
	}
	return "INBOX" + sep + mbox
}

type Reject struct {
	Message string
}

func (Reject) ActionName() string { return "reject" }

type Redirect struct {
	Address string
}

func (Redirect) ActionName() string { return "redirect" }

// Vacation is an auto-reply request. Deciding whether a reply is actually
// sent (response tracking by Handle and Days) is up to the host.
type Vacation struct {
	Reason string
	// Subject is empty unless :subject was given. The host then derives
	// one from the subject of the original message.
	Subject string
	From    string
	Handle  string
	Days    int64
	Mime    bool
	// Addresses are the additional addresses of the recipient, as given by
	// :addresses.
	Addresses []string
}

func (Vacation) ActionName() string { return "vacation" }

// ActionList is the ordered list of actions produced by an evaluation.
type ActionList []Action

// Add appends a unless an equal action is already present. It reports
// whether the action was added.
func (l *ActionList) Add(a Action) bool {
	for _, existing := range *l {
		if reflect.DeepEqual(existing, a) {
			return false
		}
	}
	*l = append(*l, a)
	return true
}

// ActionExecutor carries out actions on behalf of the host mail system.
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, a Action) error
}

type ActionExecutorFunc func(ctx context.Context, a Action) error

func (f ActionExecutorFunc) ExecuteAction(ctx context.Context, a Action) error {
	return f(ctx, a)
}

// Execute runs the actions in order. The first failure aborts execution and
// is returned as *ActionError.
func (l ActionList) Execute(ctx context.Context, exec ActionExecutor) error {
	for _, a := range l {
		if err := ctx.Err(); err != nil {
			return &ActionError{Action: a, Err: err}
		}
		if err := exec.ExecuteAction(ctx, a); err != nil {
			return &ActionError{Action: a, Err: err}
		}
	}
	return nil
}

func (l ActionList) String() string {
	names := make([]string, 0, len(l))
	for _, a := range l {
		names = append(names, a.ActionName())
	}
	return strings.Join(names, ",")
}
