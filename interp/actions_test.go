package interp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionListAdd(t *testing.T) {
	var l ActionList
	assert.True(t, l.Add(FileInto{Mailbox: "a"}))
	assert.False(t, l.Add(FileInto{Mailbox: "a"}))
	assert.True(t, l.Add(FileInto{Mailbox: "b"}))
	assert.True(t, l.Add(Keep{}))
	assert.False(t, l.Add(Keep{}))
	assert.True(t, l.Add(Vacation{Reason: "away", Addresses: []string{"a@example.org"}}))
	assert.False(t, l.Add(Vacation{Reason: "away", Addresses: []string{"a@example.org"}}))

	assert.Equal(t, "fileinto,fileinto,keep,vacation", l.String())
}

func TestActionListExecute(t *testing.T) {
	l := ActionList{Keep{}, Redirect{Address: "a@example.org"}}

	var got []Action
	err := l.Execute(context.Background(), ActionExecutorFunc(func(_ context.Context, a Action) error {
		got = append(got, a)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []Action(l), got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = l.Execute(ctx, ActionExecutorFunc(func(context.Context, Action) error {
		t.Fatal("executor called with cancelled context")
		return nil
	}))
	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Keep{}, actionErr.Action)
	assert.Equal(t, "action keep: context canceled", err.Error())
}

func TestFileIntoPath(t *testing.T) {
	cases := []struct {
		mailbox string
		want    string
	}{
		{"Spam", "INBOX/Spam"},
		{"INBOX", "INBOX"},
		{"inbox", "INBOX"},
		{"", "INBOX"},
		{"inbox/Work", "INBOX/Work"},
		{"/Spam", "INBOX/Spam"},
		{"INBOXES", "INBOX/INBOXES"},
		{"Lists/go", "INBOX/Lists/go"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FileInto{Mailbox: c.mailbox}.Path("/"), c.mailbox)
	}
	assert.Equal(t, "INBOX.Spam", FileInto{Mailbox: "Spam"}.Path("."))
}
