// Package dispatcher implements the pipeline/sequence dispatcher, the
// interrupt dispatcher, and the terminal-mode selector: everything between
// a validated, alias-expanded command line and the host's Command Runner.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/terrychou/ivish/internal/alias"
	"github.com/terrychou/ivish/internal/commanddb"
	"github.com/terrychou/ivish/internal/hostiface"
	"github.com/terrychou/ivish/internal/tokenizer"
	"github.com/terrychou/ivish/term"
)

// ShellError is a user-facing dispatch failure: command-not-found,
// unfinished quoting, invalid delimiters, or a subshell invocation failure.
// The shell loop renders it in bold red to stderr.
type ShellError struct {
	Message string
}

func (e *ShellError) Error() string { return e.Message }

// CommandInfo describes the single command currently running in the
// foreground. The concurrency model serialises execution on one dedicated
// queue, so at most one CommandInfo is live at a time.
type CommandInfo struct {
	CommandLine string
	SessionID   string

	cancel context.CancelFunc
}

// Dispatcher assembles pipelines, hands them to the host Command Runner,
// and routes ^C to the running foreground command via the command
// database's configured intaction.
type Dispatcher struct {
	Aliases   *alias.Engine
	CommandDB *commanddb.DB
	Runner    hostiface.CommandRunner
	Adapter   *term.Adapter

	// IsBuiltin reports whether name is one of the shell's own built-in
	// commands (alias, unalias, exit, help, history), which the host
	// Command Runner does not know about but which are not "not found"
	// either. The shell loop intercepts non-piped built-in invocations
	// before they reach Dispatch; this is consulted for pipe stages and
	// for the not-found check.
	IsBuiltin func(name string) bool

	// SigintHandler is the shell-process-wide handler substituted for
	// handler_func/handler_func_nl intactions.
	SigintHandler hostiface.SigintHandler

	// WriteCommandInput writes bytes to the running command's stdin; used
	// for the end_of_file intaction and the trailing newline that
	// handler_func_nl appends.
	WriteCommandInput func([]byte) (int, error)

	mu       sync.Mutex
	current  *CommandInfo
	lastExit int
}

// LastExitCode returns the exit code of the most recently completed
// segment.
func (d *Dispatcher) LastExitCode() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastExit
}

// Dispatch alias-expands, tokenizes, validates, and runs line, returning
// the exit code of the last segment executed.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (int, error) {
	if d.Aliases != nil {
		if translated, ok := d.Aliases.Translate(line); ok {
			line = translated
		}
	}

	res := tokenizer.Tokenize(line)
	if res.Unfinished != nil {
		return 1, &ShellError{Message: fmt.Sprintf("unfinished %s", res.Unfinished.Kind)}
	}
	if invalid := res.InvalidDelimiters(); len(invalid) > 0 {
		return 1, &ShellError{Message: fmt.Sprintf("invalid delimiters %s", describeDelimiters(invalid))}
	}

	groups := splitGroups(res)
	exitCode := 0
	var lastErr error
	for _, g := range groups {
		code, err := d.runGroup(ctx, res.Line, g)
		exitCode = code
		if err != nil {
			lastErr = err
		}
	}
	d.mu.Lock()
	d.lastExit = exitCode
	d.mu.Unlock()
	return exitCode, lastErr
}

func describeDelimiters(ds []tokenizer.Delimiter) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.Kind.String()
	}
	return strings.Join(parts, ", ")
}

// stage is one pipe-connected command within a group.
type stage struct {
	tokens []tokenizer.Token
}

func (s stage) head() string {
	if len(s.tokens) == 0 {
		return ""
	}
	return s.tokens[0].Content
}

// group is the sequence of pipe-connected stages between two top-level ";"
// separators (or the start/end of the line).
type group struct {
	stages []stage
	piped  bool
}

func splitGroups(res tokenizer.Result) []group {
	var groups []group
	var cur group
	tokenIdx := 0

	flush := func(end int) {
		cur.stages = append(cur.stages, stage{tokens: res.Tokens[tokenIdx:end]})
		tokenIdx = end
	}

	for _, d := range res.Delimiters {
		switch d.Kind {
		case tokenizer.Pipe, tokenizer.PipeErrRedi:
			flush(d.TokenRangeEnd)
			cur.piped = true
		case tokenizer.CommandSep:
			flush(d.TokenRangeEnd)
			groups = append(groups, cur)
			cur = group{}
		}
	}
	if tokenIdx < len(res.Tokens) {
		flush(len(res.Tokens))
	}
	if len(cur.stages) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func (d *Dispatcher) known(name string) bool {
	if name == "" {
		return false
	}
	if d.IsBuiltin != nil && d.IsBuiltin(name) {
		return true
	}
	if d.Runner != nil && d.Runner.Known(name) {
		return true
	}
	if d.Aliases != nil {
		if _, ok := d.Aliases.Lookup(name); ok {
			return true
		}
	}
	return false
}

func (d *Dispatcher) runGroup(ctx context.Context, line string, g group) (int, error) {
	if len(g.stages) == 0 {
		return 0, nil
	}

	if !g.piped {
		head := g.stages[0].head()
		if !d.known(head) {
			return 127, &ShellError{Message: fmt.Sprintf("%s: command not found", head)}
		}
		text := spanText(line, g.stages[0])
		return d.runText(ctx, text)
	}

	var b strings.Builder
	prevEnd := g.stages[0].tokens[0].Start
	for i, s := range g.stages {
		if i > 0 {
			b.WriteString(line[prevEnd:s.tokens[0].Start])
		}
		stageText := spanText(line, s)
		if needsSubshellWrap(d, s.head()) {
			stageText = "ivish " + stageText
		}
		b.WriteString(stageText)
		prevEnd = s.tokens[len(s.tokens)-1].End + 1
	}
	return d.runText(ctx, b.String())
}

func needsSubshellWrap(d *Dispatcher, head string) bool {
	if head == "ivish" {
		return true
	}
	if d.IsBuiltin != nil && d.IsBuiltin(head) {
		return true
	}
	return !d.known(head)
}

func spanText(line string, s stage) string {
	if len(s.tokens) == 0 {
		return ""
	}
	start := s.tokens[0].Start
	end := s.tokens[len(s.tokens)-1].End
	return line[start : end+1]
}

func (d *Dispatcher) runText(ctx context.Context, text string) (int, error) {
	inner, redirectDir, redirectPath, wasRedirect := parseRedirect(text)
	if wasRedirect {
		text = inner
	}

	sessionID := uuid.NewString()
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	info := &CommandInfo{CommandLine: text, SessionID: sessionID, cancel: cancel}
	d.mu.Lock()
	d.current = info
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.current = nil
		d.mu.Unlock()
	}()

	cols, rows := 80, 24
	if d.Adapter != nil {
		if c, r, err := d.Adapter.Size(); err == nil {
			cols, rows = c, r
		}
	}

	req := hostiface.RunRequest{
		CommandLine: text,
		SessionID:   sessionID,
		Columns:     cols,
		Lines:       rows,
		TermMode:    d.TermMode(firstWord(text)),
	}

	if wasRedirect {
		switch redirectDir {
		case '>':
			f, err := os.Create(redirectPath)
			if err != nil {
				return 1, &ShellError{Message: fmt.Sprintf("%s: %s", redirectPath, err)}
			}
			defer f.Close()
			req.Stdout = f
		case '<':
			f, err := os.Open(redirectPath)
			if err != nil {
				return 1, &ShellError{Message: fmt.Sprintf("%s: %s", redirectPath, err)}
			}
			defer f.Close()
			req.Stdin = f
		}
	}

	g, gctx := errgroup.WithContext(cctx)
	var code int
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				code = 1
				err = fmt.Errorf("command runner panic: %v", r)
			}
		}()
		c, runErr := d.Runner.Run(gctx, req)
		code = c
		return runErr
	})
	err := g.Wait()

	return code, err
}

// Interrupt routes ^C to the foreground command (if any) per its
// configured intaction, falling back to the installed SIGINT handler and
// then to thread cancellation.
func (d *Dispatcher) Interrupt() {
	d.mu.Lock()
	cur := d.current
	d.mu.Unlock()
	if cur == nil {
		return
	}

	head := firstWord(cur.CommandLine)
	action := ""
	if d.CommandDB != nil {
		action = d.CommandDB.IntAction(head)
	}

	switch action {
	case commanddb.ActionThreadKill, commanddb.ActionThreadCancel:
		cur.cancel()
	case commanddb.ActionEndOfFile:
		if d.WriteCommandInput != nil {
			d.WriteCommandInput([]byte(term.EndOfFile))
		}
	case commanddb.ActionHandlerFunc, commanddb.ActionHandlerFuncNL:
		if d.SigintHandler != nil {
			d.SigintHandler()
		}
		if action == commanddb.ActionHandlerFuncNL && d.WriteCommandInput != nil {
			d.WriteCommandInput([]byte(term.NewLine))
		}
	default:
		if d.SigintHandler != nil {
			d.SigintHandler()
		} else {
			cur.cancel()
		}
	}
}

// TermMode returns the terminal mode (line or raw) configured for head.
func (d *Dispatcher) TermMode(head string) string {
	if d.CommandDB == nil {
		return commanddb.TermModeLine
	}
	return d.CommandDB.TermMode(head)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseRedirect recognises "(<inner>) > path" / "(<inner>) < path", the
// only redirect form the dispatcher understands. It returns ok=false for
// anything else, leaving text untouched.
func parseRedirect(text string) (inner string, dir byte, path string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "(") {
		return "", 0, "", false
	}
	closeIdx := strings.LastIndex(trimmed, ")")
	if closeIdx < 0 {
		return "", 0, "", false
	}
	rest := strings.TrimSpace(trimmed[closeIdx+1:])
	if rest == "" {
		return "", 0, "", false
	}
	d := rest[0]
	if d != '>' && d != '<' {
		return "", 0, "", false
	}
	p := strings.TrimSpace(rest[1:])
	if p == "" {
		return "", 0, "", false
	}
	return strings.TrimSpace(trimmed[1:closeIdx]), d, p, true
}
