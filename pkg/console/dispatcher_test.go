package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mberrors "github.com/vnykmshr/metricbus/pkg/common/errors"
)

type recordingCommand struct {
	name  string
	calls [][]string
}

func (c *recordingCommand) Name() string          { return c.name }
func (c *recordingCommand) Description() string   { return "records " + c.name }
func (c *recordingCommand) Execute(args []string) { c.calls = append(c.calls, args) }

func TestNewDispatcherValidation(t *testing.T) {
	_, err := NewDispatcher(&bytes.Buffer{}, &recordingCommand{name: "help"})
	assert.True(t, mberrors.IsValidationError(err))

	_, err = NewDispatcher(&bytes.Buffer{}, &recordingCommand{name: "status"})
	assert.True(t, mberrors.IsValidationError(err))

	_, err = NewDispatcher(&bytes.Buffer{}, &recordingCommand{name: "x"}, &recordingCommand{name: "x"})
	assert.True(t, mberrors.IsValidationError(err))
}

func TestDispatcherHandle(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := &recordingCommand{name: "t"}
	d, err := NewDispatcher(out, cmd)
	require.NoError(t, err)

	d.Handle("t")
	d.Handle("  t   cpu ")
	d.Handle("")
	d.Handle("   ")

	require.Len(t, cmd.calls, 2)
	assert.Empty(t, cmd.calls[0])
	assert.Equal(t, []string{"cpu"}, cmd.calls[1])
	assert.Empty(t, out.String())

	d.Handle("x")
	assert.Contains(t, out.String(), `unknown command "x"`)
}

func TestDispatcherHelp(t *testing.T) {
	out := &bytes.Buffer{}
	events := &[]string{}
	tg, err := NewExclusiveToggle("t", "toggle printers", out, &fakeSub{name: "cpu", events: events})
	require.NoError(t, err)
	d, err := NewDispatcher(out, tg, &recordingCommand{name: "q"})
	require.NoError(t, err)

	d.Handle("help")

	text := pterm.RemoveColorFromString(out.String())
	assert.Contains(t, text, "t [cpu]")
	assert.Contains(t, text, "toggle printers")
	assert.Contains(t, text, "records q")
	assert.Contains(t, text, "list commands")
	assert.Contains(t, text, "show the state of each command")
}

func TestDispatcherStatus(t *testing.T) {
	out := &bytes.Buffer{}
	events := &[]string{}
	tg, err := NewExclusiveToggle("t", "toggle printers", out,
		&fakeSub{name: "cpu", events: events}, &fakeSub{name: "net", events: events})
	require.NoError(t, err)
	d, err := NewDispatcher(out, tg, &recordingCommand{name: "q"})
	require.NoError(t, err)

	d.Handle("status")
	assert.Equal(t, "t: none enabled\n", out.String())

	out.Reset()
	d.Handle("t net")
	d.Handle("status")
	assert.Equal(t, "t: net enabled\n", out.String())
}

func TestDispatcherStatusWithoutReporters(t *testing.T) {
	out := &bytes.Buffer{}
	d, err := NewDispatcher(out, &recordingCommand{name: "q"})
	require.NoError(t, err)

	d.Handle("status")
	assert.Equal(t, "no command reports status\n", out.String())
}

func TestDispatcherRun(t *testing.T) {
	cmd := &recordingCommand{name: "t"}
	d, err := NewDispatcher(&bytes.Buffer{}, cmd)
	require.NoError(t, err)

	err = d.Run(context.Background(), strings.NewReader("t a\n\nt\nt b\n"))
	assert.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {}, {"b"}}, cmd.calls)
}

func TestDispatcherRunCanceled(t *testing.T) {
	cmd := &recordingCommand{name: "t"}
	d, err := NewDispatcher(&bytes.Buffer{}, cmd)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx, pr) }()

	_, err = pw.Write([]byte("t x\n"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
