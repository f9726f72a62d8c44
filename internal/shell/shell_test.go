package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrychou/ivish/internal/dispatcher"
	"github.com/terrychou/ivish/internal/hostiface"
	"github.com/terrychou/ivish/term"
)

type fakeRunner struct {
	known    map[string]bool
	lastLine string
}

func (f *fakeRunner) Known(name string) bool { return f.known[name] }

func (f *fakeRunner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	f.lastLine = req.CommandLine
	return 0, nil
}

func newTestShell(t *testing.T, runner hostiface.CommandRunner) (*Shell, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	adapter := term.NewAdapter(nil, &buf)
	cfg := Config{MaxHistory: 10}
	s, err := New(adapter, runner, nil, nil, cfg, nil)
	require.NoError(t, err)
	return s, &buf
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("UNFINISHED_QUOTE_HINT_COLOR", "")
	t.Setenv("INVALID_PIPE_DELIMITER_HINT_COLOR", "")
	t.Setenv("INVALID_COMMAND_SEPARATOR_HINT_COLOR", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, 178, cfg.UnfinishedQuoteColor)
	assert.Equal(t, 178, cfg.InvalidPipeColor)
	assert.Equal(t, 178, cfg.InvalidSeparatorColor)
}

func TestConfigFromEnvOverride(t *testing.T) {
	t.Setenv("UNFINISHED_QUOTE_HINT_COLOR", "9")
	cfg := ConfigFromEnv()
	assert.Equal(t, 9, cfg.UnfinishedQuoteColor)
}

func TestIsBuiltin(t *testing.T) {
	s, _ := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	for _, name := range []string{"alias", "unalias", "exit", "help", "history"} {
		assert.True(t, s.isBuiltin(name), name)
	}
	assert.False(t, s.isBuiltin("echo"))
}

func TestAliasPreviewShowsTranslation(t *testing.T) {
	s, _ := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	require.NoError(t, s.aliases.Define("ll", "ls --color "))
	assert.Equal(t, "→ ls --color -la", s.aliasPreview("ll -la"))
	assert.Equal(t, "", s.aliasPreview("echo hi"))
	assert.Equal(t, "", s.aliasPreview("   "))
}

func TestBuiltinAliasDefineAndList(t *testing.T) {
	s, buf := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	code := s.builtinAlias([]string{"ll=ls --color"})
	assert.Equal(t, 0, code)

	buf.Reset()
	code = s.builtinAlias(nil)
	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "alias ll='ls --color'")
}

func TestBuiltinAliasShowMissingIsError(t *testing.T) {
	s, buf := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	code := s.builtinAlias([]string{"nope"})
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "alias: nope: not found")
}

func TestBuiltinUnaliasRemoveAll(t *testing.T) {
	s, _ := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	require.NoError(t, s.aliases.Define("ll", "ls"))
	code := s.builtinUnalias([]string{"-a"})
	assert.Equal(t, 0, code)
	assert.Empty(t, s.aliases.Names())
}

func TestBuiltinUnaliasNotFound(t *testing.T) {
	s, buf := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	code := s.builtinUnalias([]string{"nope"})
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "unalias: nope: not found")
}

func TestRunBuiltinRoutesExitWithoutReachingDispatcher(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{}}
	s, _ := newTestShell(t, runner)
	code, handled, exit := s.runBuiltin("exit")
	assert.True(t, handled)
	assert.True(t, exit)
	assert.Equal(t, 0, code)
	assert.Empty(t, runner.lastLine)
}

// blockingRunner simulates a long-running foreground command: Run signals
// started, then blocks until ctx is cancelled, the way the interrupt
// dispatcher's default (SigintHandler-less) fallback cancels it.
type blockingRunner struct {
	known   map[string]bool
	started chan struct{}
}

func (b *blockingRunner) Known(name string) bool { return b.known[name] }

func (b *blockingRunner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	close(b.started)
	<-ctx.Done()
	return 130, ctx.Err()
}

// TestRunDeliversInterruptToForegroundCommand locks in the fix for the
// concurrency bug where a ^C byte queued while a foreground command was
// running never reached the interrupt dispatcher until the command
// returned on its own: the reader goroutine and runLine's own goroutine
// must both be alive at once so a ^C arriving mid-command is observed by
// the select loop instead of sitting unread behind the blocking Dispatch
// call.
func TestRunDeliversInterruptToForegroundCommand(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var buf bytes.Buffer
	adapter := term.NewAdapter(r, &buf)
	runner := &blockingRunner{known: map[string]bool{"sleep": true}, started: make(chan struct{})}
	s, err := New(adapter, runner, nil, nil, Config{MaxHistory: 10}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan int, 1)
	go func() { runDone <- s.Run(ctx) }()

	_, err = w.Write([]byte("sleep\r"))
	require.NoError(t, err)

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("foreground command never started")
	}

	_, err = w.Write([]byte(term.Interrupt))
	require.NoError(t, err)

	select {
	case code := <-runDone:
		t.Fatalf("Run exited early with code %d before ^D was sent", code)
	case <-time.After(200 * time.Millisecond):
	}

	_, err = w.Write([]byte{term.EOT})
	require.NoError(t, err)

	select {
	case code := <-runDone:
		assert.Equal(t, 130, code)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the interrupted command exited and ^D followed")
	}
}

func TestRunBuiltinLeavesPipedBuiltinToDispatcher(t *testing.T) {
	s, _ := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	_, handled, _ := s.runBuiltin("history | grep foo")
	assert.False(t, handled)
}

func TestClassifyWrapsCommandNotFound(t *testing.T) {
	err := classify(&dispatcher.ShellError{Message: "bogus: command not found"})
	assert.True(t, errors.Is(err, ErrCommandNotFound))
}

func TestClassifyWrapsUnfinishedQuote(t *testing.T) {
	err := classify(&dispatcher.ShellError{Message: `unfinished "`})
	assert.True(t, errors.Is(err, ErrUnfinishedQuote))
}

func TestRunOnceDispatchesKnownCommand(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{"echo": true}}
	s, _ := newTestShell(t, runner)
	code := s.RunOnce(context.Background(), "echo hi")
	assert.Equal(t, 0, code)
	assert.Equal(t, "echo hi", runner.lastLine)
}

func TestRunOnceReportsCommandNotFound(t *testing.T) {
	s, buf := newTestShell(t, &fakeRunner{known: map[string]bool{}})
	code := s.RunOnce(context.Background(), "bogus")
	assert.Equal(t, 127, code)
	assert.Contains(t, buf.String(), "bogus: command not found")
}
