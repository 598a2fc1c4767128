package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/emersion/go-message/textproto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sieve "github.com/sieveworks/go-sieve"
	"github.com/sieveworks/go-sieve/interp"
	"github.com/sieveworks/go-sieve/internal/metrics"
)

const filterScript = `require "fileinto";
if header :contains "Subject" "[list]" {
	fileinto "Lists";
} elsif address :is :domain "From" "spam.example" {
	discard;
}
`

func newEngine(t *testing.T, opts Options) (*Engine, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	opts.Metrics = m
	if opts.Sieve.Lexer.MaxTokens == 0 {
		opts.Sieve = sieve.DefaultOptions()
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e, m
}

func message(from, subject string) interp.MessageStatic {
	var hdr textproto.Header
	hdr.Add("From", from)
	hdr.Add("Subject", subject)
	return interp.MessageStatic{Size: 100, Header: hdr}
}

func TestCompile(t *testing.T) {
	e, m := newEngine(t, Options{})

	s1, err := e.Compile("main", strings.NewReader(filterScript))
	require.NoError(t, err)
	assert.Equal(t, []string{"fileinto"}, s1.Extensions())

	// Same source is not loaded again.
	s2, err := e.Compile("main", strings.NewReader(filterScript))
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptsLoaded.WithLabelValues("ok")))

	s3, err := e.Compile("main", strings.NewReader(`keep;`))
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CachedScripts))

	_, err = e.Compile("broken", strings.NewReader(`fileinto "x";`))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScriptsLoaded.WithLabelValues("error")))
	_, ok := e.Script("broken")
	assert.False(t, ok)

	assert.True(t, e.Remove("main"))
	assert.False(t, e.Remove("main"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CachedScripts))
}

func TestCompileErrorHasFilename(t *testing.T) {
	e, _ := newEngine(t, Options{})
	_, err := e.Compile("user.sieve", strings.NewReader(`keep "unterminated`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user.sieve")
}

func TestCompileTooLarge(t *testing.T) {
	e, _ := newEngine(t, Options{MaxScriptSize: 5})
	_, err := e.Compile("big", strings.NewReader(`keep; keep;`))
	require.ErrorIs(t, err, ErrScriptTooLarge)

	_, err = e.Compile("small", strings.NewReader(`keep;`))
	require.NoError(t, err)
}

func TestCacheEviction(t *testing.T) {
	e, _ := newEngine(t, Options{MaxScripts: 2})
	for _, name := range []string{"a", "b"} {
		_, err := e.Compile(name, strings.NewReader(`keep;`))
		require.NoError(t, err)
	}
	// Touch "a" so "b" is the oldest.
	_, ok := e.Script("a")
	require.True(t, ok)

	_, err := e.Compile("c", strings.NewReader(`discard;`))
	require.NoError(t, err)

	_, ok = e.Script("b")
	assert.False(t, ok)
	_, ok = e.Script("a")
	assert.True(t, ok)
	_, ok = e.Script("c")
	assert.True(t, ok)
}

func TestEvaluate(t *testing.T) {
	e, m := newEngine(t, Options{})
	_, err := e.Compile("main", strings.NewReader(filterScript))
	require.NoError(t, err)

	ctx := context.Background()
	actions, err := e.Evaluate(ctx, "main", nil, message("a@example.org", "[list] hello"))
	require.NoError(t, err)
	assert.Equal(t, interp.ActionList{interp.FileInto{Mailbox: "Lists"}}, actions)

	actions, err = e.Evaluate(ctx, "main", nil, message("x@spam.example", "buy"))
	require.NoError(t, err)
	assert.Equal(t, interp.ActionList{interp.Discard{}}, actions)

	_, err = e.Evaluate(ctx, "nosuch", nil, message("a@example.org", "x"))
	require.ErrorIs(t, err, ErrScriptNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("fileinto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("discard")))
}

func TestDeliverFallback(t *testing.T) {
	e, m := newEngine(t, Options{})
	// The envelope test fails at runtime without an envelope.
	_, err := e.Compile("env", strings.NewReader(`require "envelope"; if envelope "from" "a@example.org" { discard; }`))
	require.NoError(t, err)

	rec := &Recorder{}
	res := e.Deliver(context.Background(), "msg-1", "env", nil, message("a@example.org", "x"), rec)
	require.Error(t, res.Err)
	assert.True(t, res.Fallback)
	assert.Equal(t, interp.ActionList{interp.Keep{}}, res.Actions)
	assert.Equal(t, []Record{{Action: "keep", Target: "INBOX"}}, rec.Records())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("fallback")))
}

func TestDeliverActionFailure(t *testing.T) {
	e, m := newEngine(t, Options{})
	_, err := e.Compile("main", strings.NewReader(filterScript))
	require.NoError(t, err)

	failing := interp.ActionExecutorFunc(func(context.Context, interp.Action) error {
		return errors.New("quota exceeded")
	})
	res := e.Deliver(context.Background(), "msg-1", "main", nil, message("a@example.org", "[list] x"), failing)
	var actionErr *interp.ActionError
	require.True(t, errors.As(res.Err, &actionErr))
	assert.False(t, res.Fallback)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionFailures.WithLabelValues("fileinto")))
}

func TestEvaluateAll(t *testing.T) {
	e, _ := newEngine(t, Options{Workers: 3})
	_, err := e.Compile("main", strings.NewReader(filterScript))
	require.NoError(t, err)

	var jobs []Job
	for i := 0; i < 20; i++ {
		subject := "hello"
		if i%2 == 0 {
			subject = "[list] hello"
		}
		jobs = append(jobs, Job{
			ID:      fmt.Sprintf("msg-%d", i),
			Message: message("a@example.org", subject),
		})
	}

	rec := &Recorder{Separator: "."}
	results, err := e.EvaluateAll(context.Background(), "main", jobs, rec)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), res.ID)
		require.NoError(t, res.Err)
		if i%2 == 0 {
			assert.Equal(t, interp.ActionList{interp.FileInto{Mailbox: "Lists"}}, res.Actions)
		} else {
			assert.Equal(t, interp.ActionList{interp.Keep{}}, res.Actions)
		}
	}

	counts := map[string]int{}
	for _, r := range rec.Records() {
		counts[r.String()]++
	}
	assert.Equal(t, map[string]int{"fileinto INBOX.Lists": 10, "keep INBOX": 10}, counts)

	_, err = e.EvaluateAll(context.Background(), "nosuch", jobs, rec)
	require.ErrorIs(t, err, ErrScriptNotFound)
}

func TestEvaluateAllCancelled(t *testing.T) {
	e, _ := newEngine(t, Options{})
	_, err := e.Compile("main", strings.NewReader(`keep;`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EvaluateAll(ctx, "main", []Job{{ID: "1", Message: message("a@example.org", "x")}}, &Recorder{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	for _, a := range []interp.Action{
		interp.Keep{},
		interp.FileInto{Mailbox: "Work/Reports"},
		interp.Redirect{Address: "b@example.org"},
		interp.Reject{Message: "no thanks"},
		interp.Vacation{From: "me@example.org", Reason: "away"},
		interp.Discard{},
	} {
		require.NoError(t, rec.ExecuteAction(ctx, a))
	}
	assert.Equal(t, []Record{
		{Action: "keep", Target: "INBOX"},
		{Action: "fileinto", Target: "INBOX/Work/Reports"},
		{Action: "redirect", Target: "b@example.org"},
		{Action: "reject", Target: "no thanks"},
		{Action: "vacation", Target: "me@example.org"},
		{Action: "discard"},
	}, rec.Records())

	rec.Reset()
	assert.Empty(t, rec.Records())
}
