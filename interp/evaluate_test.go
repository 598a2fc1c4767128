package interp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/emersion/go-message/textproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieveworks/go-sieve/lexer"
	"github.com/sieveworks/go-sieve/parser"
)

func loadScript(t *testing.T, reg *Registries, src string) (*Script, error) {
	t.Helper()
	return loadScriptOpts(t, reg, src, &Options{})
}

func loadScriptOpts(t *testing.T, reg *Registries, src string, opts *Options) (*Script, error) {
	t.Helper()
	if reg == nil {
		var err error
		reg, err = NewRegistries(opts)
		require.NoError(t, err)
	}
	toks, err := lexer.Lex(strings.NewReader(src), &lexer.Options{})
	require.NoError(t, err)
	tree, err := parser.Parse(lexer.NewStream(toks), &parser.Options{})
	require.NoError(t, err)
	return LoadScript(tree, reg, opts)
}

func testMessage() MessageStatic {
	var hdr textproto.Header
	hdr.Add("From", "coyote@desert.example.org")
	hdr.Add("To", "roadrunner@acme.example.com")
	hdr.Add("Subject", "[test] my subject")
	return MessageStatic{Size: 1000, Header: hdr}
}

func evaluate(t *testing.T, src string) (ActionList, error) {
	t.Helper()
	s, err := loadScript(t, nil, src)
	require.NoError(t, err)
	d := NewRuntimeData(s, EnvelopeStatic{From: "a@example.org", To: "b@example.org"}, testMessage())
	return s.Evaluate(context.Background(), d)
}

func TestEvaluateChain(t *testing.T) {
	cases := []struct {
		name   string
		script string
		want   ActionList
	}{
		{
			name:   "third branch",
			script: `require "fileinto"; if false { fileinto "A"; } elsif false { fileinto "B"; } elsif true { fileinto "C"; }`,
			want:   ActionList{FileInto{Mailbox: "C"}},
		},
		{
			name:   "first branch only",
			script: `require "fileinto"; if true { fileinto "A"; } elsif true { fileinto "B"; }`,
			want:   ActionList{FileInto{Mailbox: "A"}},
		},
		{
			name:   "else",
			script: `require "fileinto"; if false { fileinto "A"; } elsif false { fileinto "B"; } else { fileinto "C"; }`,
			want:   ActionList{FileInto{Mailbox: "C"}},
		},
		{
			name:   "nested chains are independent",
			script: `require "fileinto"; if true { if false { fileinto "A"; } else { fileinto "B"; } } else { fileinto "C"; }`,
			want:   ActionList{FileInto{Mailbox: "B"}},
		},
		{
			name:   "no branch taken",
			script: `require "fileinto"; if false { fileinto "A"; } elsif false { fileinto "B"; }`,
			want:   ActionList{Keep{}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			actions, err := evaluate(t, c.script)
			require.NoError(t, err)
			assert.Equal(t, c.want, actions)
		})
	}
}

func TestChainStateMachine(t *testing.T) {
	s, err := loadScript(t, nil, `keep;`)
	require.NoError(t, err)
	d := NewRuntimeData(s, nil, testMessage())
	ctx := context.Background()

	d.chain.push()
	_, err = CmdElse{}.Execute(ctx, d)
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "unexpected command", cmdErr.Msg)

	_, err = CmdElsif{Test: TrueTest{}}.Execute(ctx, d)
	require.True(t, errors.As(err, &cmdErr))

	_, err = CmdIf{Test: FalseTest{}}.Execute(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, ChainOpenFalse, d.chain.current())

	_, err = CmdElsif{Test: TrueTest{}, Block: Block{{Name: "discard", Cmd: CmdDiscard{}}}}.Execute(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, ChainOpenTrue, d.chain.current())

	// Skipped, the chain already ran a branch.
	_, err = CmdElse{Block: Block{{Name: "keep", Cmd: CmdKeep{}}}}.Execute(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, NoOpenChain, d.chain.current())
	assert.Equal(t, ActionList{Discard{}}, d.Actions)
}

func TestEvaluateErrors(t *testing.T) {
	t.Run("require after command", func(t *testing.T) {
		_, err := loadScript(t, nil, "keep;\nrequire \"fileinto\";")
		var cmdErr *CommandError
		require.True(t, errors.As(err, &cmdErr), "%v", err)
		assert.Equal(t, 2, cmdErr.Coord.Start.Line)
		assert.True(t, strings.HasSuffix(err.Error(), "Line 2 column 1."), err.Error())
	})
	t.Run("require after nested command", func(t *testing.T) {
		_, err := loadScript(t, nil, `if true { if true { keep; } } require "fileinto";`)
		require.True(t, errors.As(err, new(*CommandError)), "%v", err)
	})
	t.Run("unknown command", func(t *testing.T) {
		_, err := loadScript(t, nil, `if true { bogus; }`)
		var lookupErr *LookupError
		require.True(t, errors.As(err, &lookupErr), "%v", err)
		assert.Equal(t, "bogus", lookupErr.Name)
		assert.Contains(t, err.Error(), "not mapped")
	})
	t.Run("unknown test", func(t *testing.T) {
		_, err := loadScript(t, nil, `if bogus { keep; }`)
		require.True(t, errors.As(err, new(*LookupError)), "%v", err)
	})
	t.Run("unknown feature", func(t *testing.T) {
		_, err := loadScript(t, nil, `require "bogus";`)
		var lookupErr *LookupError
		require.True(t, errors.As(err, &lookupErr), "%v", err)
		assert.Equal(t, "feature", lookupErr.Kind)
	})
	t.Run("unknown comparator", func(t *testing.T) {
		_, err := loadScript(t, nil, `if header :comparator "i;bogus" "a" "b" { keep; }`)
		require.True(t, errors.As(err, new(*LookupError)), "%v", err)
	})
	t.Run("wrong argument", func(t *testing.T) {
		_, err := loadScript(t, nil, "require \"fileinto\";\nfileinto 12;")
		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), "%v", err)
		assert.Equal(t, 2, syntaxErr.Coord.Start.Line)
	})
	t.Run("tag without value", func(t *testing.T) {
		_, err := loadScript(t, nil, `if header :comparator { keep; }`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("unknown tag", func(t *testing.T) {
		_, err := loadScript(t, nil, `if header :bogus "a" "b" { keep; }`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("test list for if", func(t *testing.T) {
		_, err := loadScript(t, nil, `if (true, false) { keep; }`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("missing block", func(t *testing.T) {
		_, err := loadScript(t, nil, `if true;`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("unexpected block", func(t *testing.T) {
		_, err := loadScript(t, nil, `keep { discard; }`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("unsupported match for comparator", func(t *testing.T) {
		_, err := loadScript(t, nil, `require "comparator-i;ascii-numeric"; if header :contains :comparator "i;ascii-numeric" "a" "1" { keep; }`)
		require.True(t, errors.As(err, new(*SyntaxError)), "%v", err)
	})
	t.Run("reject after action", func(t *testing.T) {
		_, err := evaluate(t, "require \"reject\";\ndiscard;\nreject \"no\";")
		var cmdErr *CommandError
		require.True(t, errors.As(err, &cmdErr), "%v", err)
		assert.Equal(t, 3, cmdErr.Coord.Start.Line)
	})
	t.Run("envelope unavailable", func(t *testing.T) {
		s, err := loadScript(t, nil, "require \"envelope\";\nif envelope \"from\" \"x\" { keep; }")
		require.NoError(t, err)
		_, err = s.Evaluate(context.Background(), NewRuntimeData(s, nil, testMessage()))
		var mailErr *MailError
		require.True(t, errors.As(err, &mailErr), "%v", err)
		assert.Equal(t, 2, mailErr.Coord.Start.Line)
		assert.ErrorIs(t, err, errNoEnvelope)
	})
}

func TestEvaluateMaxRedirects(t *testing.T) {
	opts := &Options{MaxRedirects: 2}
	s, err := loadScriptOpts(t, nil, `redirect "a@example.org"; redirect "a@example.org"; redirect "b@example.org"; redirect "c@example.org";`, opts)
	require.NoError(t, err)

	_, err = s.Evaluate(context.Background(), NewRuntimeData(s, nil, testMessage()))
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr), "%v", err)
	assert.Equal(t, "too many redirects", cmdErr.Msg)
}

func TestEvaluateReuse(t *testing.T) {
	s, err := loadScript(t, nil, `if header :contains "Subject" "test" { discard; }`)
	require.NoError(t, err)

	d := NewRuntimeData(s, nil, testMessage())
	for i := 0; i < 2; i++ {
		actions, err := s.Evaluate(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, ActionList{Discard{}}, actions)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	s, err := loadScript(t, nil, `require "fileinto"; if header :matches "Subject" "[test*" { fileinto "Test"; } else { keep; }`)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]ActionList, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := testMessage()
			if i%2 == 1 {
				msg.Header.Set("Subject", "other")
			}
			results[i], errs[i] = s.Evaluate(context.Background(), NewRuntimeData(s, nil, msg))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		if i%2 == 1 {
			assert.Equal(t, ActionList{Keep{}}, results[i])
		} else {
			assert.Equal(t, ActionList{FileInto{Mailbox: "Test"}}, results[i])
		}
	}
}

func TestRun(t *testing.T) {
	s, err := loadScript(t, nil, `require "fileinto"; fileinto "a"; fileinto "b"; redirect "c@example.org";`)
	require.NoError(t, err)

	var executed []Action
	failing := ActionExecutorFunc(func(_ context.Context, a Action) error {
		executed = append(executed, a)
		if f, ok := a.(FileInto); ok && f.Mailbox == "b" {
			return errors.New("mailbox is full")
		}
		return nil
	})

	_, err = s.Run(context.Background(), NewRuntimeData(s, nil, testMessage()), failing)
	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr), "%v", err)
	assert.Equal(t, FileInto{Mailbox: "b"}, actionErr.Action)
	assert.Equal(t, []Action{FileInto{Mailbox: "a"}, FileInto{Mailbox: "b"}}, executed)
}

func TestScriptExtensions(t *testing.T) {
	s, err := loadScript(t, nil, `require ["Fileinto", "envelope"]; keep;`)
	require.NoError(t, err)
	assert.Equal(t, []string{"envelope", "fileinto"}, s.Extensions())
	assert.True(t, s.RequiresExtension("FILEINTO"))
	assert.False(t, s.RequiresExtension("vacation"))
	assert.Len(t, s.Tree().Block.Commands.List, 2)
}

func TestRequireCommandsAndTests(t *testing.T) {
	actions, err := evaluate(t, `require ["header", "keep"]; if header :contains "subject" "test" { keep; }`)
	require.NoError(t, err)
	assert.Equal(t, ActionList{Keep{}}, actions)

	_, err = loadScript(t, nil, `require "nosuch"; keep;`)
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr), "%v", err)
	assert.Equal(t, "nosuch", lookupErr.Name)
}
