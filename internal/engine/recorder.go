package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sieveworks/go-sieve/interp"
)

// Record is an action carried out by a Recorder.
type Record struct {
	Action string
	// Target is the mailbox path for keep and fileinto, the address for
	// redirect, the reason for reject and the sender for vacation.
	Target string
}

func (r Record) String() string {
	if r.Target == "" {
		return r.Action
	}
	return fmt.Sprintf("%s %s", r.Action, r.Target)
}

// Recorder is an ActionExecutor that only records the actions. It is used
// for dry runs and tests.
type Recorder struct {
	// Separator is the mailbox hierarchy separator. Defaults to "/".
	Separator string

	mu      sync.Mutex
	records []Record
}

// Describe converts an action to a Record, rooting mailboxes at INBOX with
// sep as the hierarchy separator.
func Describe(a interp.Action, sep string) (Record, error) {
	rec := Record{Action: a.ActionName()}
	switch a := a.(type) {
	case interp.Keep:
		rec.Target = "INBOX"
	case interp.FileInto:
		rec.Target = a.Path(sep)
	case interp.Redirect:
		rec.Target = a.Address
	case interp.Reject:
		rec.Target = a.Message
	case interp.Vacation:
		rec.Target = a.From
	case interp.Discard:
	default:
		return rec, fmt.Errorf("unsupported action %s", a.ActionName())
	}
	return rec, nil
}

func (r *Recorder) ExecuteAction(_ context.Context, a interp.Action) error {
	sep := r.Separator
	if sep == "" {
		sep = "/"
	}
	rec, err := Describe(a, sep)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

// Records returns a copy of the recorded actions.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
