package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/terrychou/ivish/internal/commanddb"
	"github.com/terrychou/ivish/internal/hostiface"
)

type fakeRunner struct {
	known    map[string]bool
	lastLine string
	lastMode string
	exitCode int
}

func (f *fakeRunner) Known(name string) bool { return f.known[name] }

func (f *fakeRunner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	f.lastLine = req.CommandLine
	f.lastMode = req.TermMode
	return f.exitCode, nil
}

func TestDispatchKnownCommandRuns(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{"echo": true}}
	d := &Dispatcher{Runner: runner}

	code, err := d.Dispatch(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if code != 0 {
		t.Fatalf("code = %d, want 0", code)
	}
	if runner.lastLine != "echo hi" {
		t.Fatalf("runner saw %q, want %q", runner.lastLine, "echo hi")
	}
}

func TestDispatchUnknownCommandIsNotFound(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{}}
	d := &Dispatcher{Runner: runner}

	code, err := d.Dispatch(context.Background(), "bogus arg")
	if code != 127 {
		t.Fatalf("code = %d, want 127", code)
	}
	if err == nil {
		t.Fatal("err = nil, want ShellError")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want a not-found message", err)
	}
}

func TestDispatchUnfinishedQuoteIsShellError(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{"echo": true}}
	d := &Dispatcher{Runner: runner}

	_, err := d.Dispatch(context.Background(), `echo "hi`)
	if err == nil {
		t.Fatal("err = nil, want unfinished-quote ShellError")
	}
	if !strings.Contains(err.Error(), "unfinished") {
		t.Fatalf("err = %v, want an unfinished-quote message", err)
	}
}

func TestDispatchPipelineWrapsUnknownStage(t *testing.T) {
	runner := &fakeRunner{known: map[string]bool{"grep": true}}
	d := &Dispatcher{
		Runner:    runner,
		IsBuiltin: func(name string) bool { return name == "history" },
	}

	code, err := d.Dispatch(context.Background(), "history | grep foo")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if code != 0 {
		t.Fatalf("code = %d, want 0", code)
	}
	if !strings.Contains(runner.lastLine, "ivish history") {
		t.Fatalf("runner saw %q, want it to contain %q", runner.lastLine, "ivish history")
	}
	if !strings.Contains(runner.lastLine, "| grep foo") {
		t.Fatalf("runner saw %q, want the pipe stage preserved", runner.lastLine)
	}
}

func TestDispatchSequenceRunsBothSegments(t *testing.T) {
	var seen []string
	runner := &recordingRunner{known: map[string]bool{"echo": true}, seen: &seen}
	d := &Dispatcher{Runner: runner}

	code, err := d.Dispatch(context.Background(), "echo a ; echo b")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if code != 0 {
		t.Fatalf("code = %d, want 0", code)
	}
	if len(seen) != 2 || seen[0] != "echo a" || seen[1] != "echo b" {
		t.Fatalf("seen = %v, want [\"echo a\" \"echo b\"]", seen)
	}
}

func TestDispatchStampsTermModeOnRunRequest(t *testing.T) {
	db := mustCommandDB(t, "vim:\n  termmode: raw\n")
	runner := &fakeRunner{known: map[string]bool{"vim": true}}
	d := &Dispatcher{Runner: runner, CommandDB: db}

	if _, err := d.Dispatch(context.Background(), "vim"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if runner.lastMode != "raw" {
		t.Fatalf("lastMode = %q, want %q", runner.lastMode, "raw")
	}

	runner2 := &fakeRunner{known: map[string]bool{"echo": true}}
	d2 := &Dispatcher{Runner: runner2, CommandDB: db}
	if _, err := d2.Dispatch(context.Background(), "echo hi"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if runner2.lastMode != "line" {
		t.Fatalf("lastMode = %q, want %q (default)", runner2.lastMode, "line")
	}
}

type recordingRunner struct {
	known map[string]bool
	seen  *[]string
}

func (r *recordingRunner) Known(name string) bool { return r.known[name] }

func (r *recordingRunner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	*r.seen = append(*r.seen, req.CommandLine)
	return 0, nil
}

func TestInterruptEndOfFileWritesEOFByte(t *testing.T) {
	db := mustCommandDB(t, "less:\n  intaction: end_of_file\n")
	var written []byte
	d := &Dispatcher{
		CommandDB:         db,
		WriteCommandInput: func(p []byte) (int, error) { written = append(written, p...); return len(p), nil },
	}
	d.current = &CommandInfo{CommandLine: "less", cancel: func() {}}

	d.Interrupt()

	if len(written) != 1 || written[0] != 0x04 {
		t.Fatalf("written = %v, want [0x04]", written)
	}
}

func TestInterruptFallsBackToThreadCancelWithoutHandler(t *testing.T) {
	d := &Dispatcher{}
	cancelled := false
	d.current = &CommandInfo{CommandLine: "sleep", cancel: func() { cancelled = true }}

	d.Interrupt()

	if !cancelled {
		t.Fatal("expected cancel() to be called when no intaction and no SigintHandler are configured")
	}
}

func TestParseRedirectOutput(t *testing.T) {
	inner, dir, path, ok := parseRedirect("(echo hi) > /tmp/out.txt")
	if !ok {
		t.Fatal("parseRedirect() ok = false, want true")
	}
	if inner != "echo hi" || dir != '>' || path != "/tmp/out.txt" {
		t.Fatalf("parseRedirect() = (%q, %q, %q), want (%q, '>', %q)", inner, string(dir), path, "echo hi", "/tmp/out.txt")
	}
}

func TestParseRedirectNoMatch(t *testing.T) {
	_, _, _, ok := parseRedirect("echo hi")
	if ok {
		t.Fatal("parseRedirect() ok = true for plain command, want false")
	}
}

func mustCommandDB(t *testing.T, yaml string) *commanddb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmddb.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	db, err := commanddb.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return db
}
