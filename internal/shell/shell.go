// Package shell implements the shell loop described in the shell design's
// system overview: prompt, read, alias-expand, tokenize, validate, dispatch,
// update history, and handle EOF/interrupt/completion/error events surfaced
// by the line editor. It also owns the five built-in commands (alias,
// unalias, exit, help, history); a bare invocation of one is intercepted
// before the line reaches the dispatcher.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/terrychou/ivish/internal/alias"
	"github.com/terrychou/ivish/internal/commanddb"
	"github.com/terrychou/ivish/internal/dispatcher"
	"github.com/terrychou/ivish/internal/history"
	"github.com/terrychou/ivish/internal/hostiface"
	"github.com/terrychou/ivish/internal/lineeditor"
	"github.com/terrychou/ivish/internal/tokenizer"
	"github.com/terrychou/ivish/term"
)

// Sentinel error kinds a caller can compare against with errors.Is, wrapping
// the dispatcher's *dispatcher.ShellError values by message shape.
var (
	ErrUnfinishedQuote   = errors.New("unfinished quote")
	ErrInvalidDelimiters = errors.New("invalid delimiters")
	ErrCommandNotFound   = errors.New("command not found")
	ErrShellExit         = errors.New("shell exit")
)

const promptString = "$ "

// Config holds the shell's tunables, populated from compiled-in defaults,
// environment variables, and (in cmd/ivish) CLI flags, in that increasing
// order of priority.
type Config struct {
	CommandDBPath         string
	HistoryFile           string
	UnfinishedQuoteColor  int
	InvalidPipeColor      int
	InvalidSeparatorColor int
	MaxHistory            int
}

// ConfigFromEnv reads the environment variables named in the shell design's
// external-interfaces section, falling back to their documented defaults.
func ConfigFromEnv() Config {
	return Config{
		CommandDBPath:         os.Getenv("IVISH_CMD_DB"),
		HistoryFile:           os.Getenv("IVISH_HISTORY_FILE"),
		UnfinishedQuoteColor:  intEnv("UNFINISHED_QUOTE_HINT_COLOR", 178),
		InvalidPipeColor:      intEnv("INVALID_PIPE_DELIMITER_HINT_COLOR", 178),
		InvalidSeparatorColor: intEnv("INVALID_COMMAND_SEPARATOR_HINT_COLOR", 178),
		MaxHistory:            history.DefaultMaxItems,
	}
}

func intEnv(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Shell wires the line editor, the pipeline/interrupt dispatcher, history,
// aliases, and the command database together into a runnable read-eval
// loop. The shell owns all of them; the dispatcher only borrows the alias
// engine and command database, per the shell design's ownership rules.
type Shell struct {
	cfg Config
	log *logrus.Entry

	adapter   *term.Adapter
	editor    *lineeditor.Editor
	hist      *history.Store
	aliases   *alias.Engine
	commandDB *commanddb.DB
	dispatch  *dispatcher.Dispatcher

	out io.Writer

	dbWatchStop func()

	// HelpFunc is the host-provided help trigger invoked by the "help"
	// built-in; if nil, a minimal built-in summary is printed instead.
	HelpFunc func(out io.Writer)

	exiting  bool
	lastExit int
}

// New builds a Shell around adapter (the terminal I/O adapter) and the
// host-supplied collaborators, loading history and the command database
// from the paths in cfg. logger may be nil, in which case internal
// diagnostics are discarded rather than landing on the user's terminal
// uninvited.
func New(adapter *term.Adapter, runner hostiface.CommandRunner, completer hostiface.CompletionProvider, cellWidth hostiface.CellWidthFunc, cfg Config, logger *logrus.Logger) (*Shell, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	entry := logger.WithField("component", "shell")

	hist, err := history.Load(cfg.HistoryFile, cfg.MaxHistory)
	if err != nil {
		entry.WithError(err).Warn("history: load failed, starting empty")
	}

	db, err := commanddb.Load(cfg.CommandDBPath, entry)
	if err != nil {
		entry.WithError(err).Warn("command database: load failed, continuing with no entries")
	}
	stop, err := db.Watch(cfg.CommandDBPath)
	if err != nil {
		entry.WithError(err).Debug("command database: hot reload not available")
		stop = func() {}
	}

	s := &Shell{
		cfg:         cfg,
		log:         entry,
		adapter:     adapter,
		hist:        hist,
		aliases:     alias.NewEngine(),
		commandDB:   db,
		out:         adapter,
		dbWatchStop: stop,
	}

	s.dispatch = &dispatcher.Dispatcher{
		Aliases:   s.aliases,
		CommandDB: db,
		Runner:    runner,
		Adapter:   adapter,
		IsBuiltin: s.isBuiltin,
	}

	ed := lineeditor.New(adapter, hist, completer, cellWidth)
	ed.Colors = lineeditor.HintColors{
		UnfinishedQuote:  cfg.UnfinishedQuoteColor,
		InvalidPipe:      cfg.InvalidPipeColor,
		InvalidSeparator: cfg.InvalidSeparatorColor,
	}
	ed.SublineFunc = s.aliasPreview
	s.editor = ed

	return s, nil
}

func (s *Shell) isBuiltin(name string) bool {
	switch name {
	case "alias", "unalias", "exit", "help", "history":
		return true
	}
	return false
}

// aliasPreview is the line editor's subline callback: it shows what the
// current line would expand to once aliases are applied, so the user sees
// the translation before pressing Enter.
func (s *Shell) aliasPreview(line string) string {
	if strings.TrimSpace(line) == "" {
		return ""
	}
	translated, ok := s.aliases.Translate(line)
	if !ok {
		return ""
	}
	return "→ " + translated
}

// Close flushes history to disk and stops the command database watcher.
func (s *Shell) Close() error {
	s.dbWatchStop()
	return s.hist.Save(s.cfg.HistoryFile)
}

// Interrupt forwards an out-of-band interrupt (e.g. the host process's own
// SIGINT, delivered outside the raw-mode ^C byte already handled inside
// Run) to the dispatcher's foreground-command routing.
func (s *Shell) Interrupt() {
	s.dispatch.Interrupt()
}

// LastExitCode returns the exit code of the most recently completed line.
func (s *Shell) LastExitCode() int {
	return s.lastExit
}

// Run starts the interactive read-eval-print loop, returning the last exit
// code observed when the loop ends (on ^D at an empty prompt, or ctx
// cancellation).
func (s *Shell) Run(ctx context.Context) int {
	s.writePrompt()

	type chunk struct {
		data []byte
		err  error
	}
	reads := make(chan chunk, 8)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := s.adapter.Read(buf)
			if n > 0 {
				cp := make([]byte, n)
				copy(cp, buf[:n])
				reads <- chunk{data: cp}
			}
			if err != nil {
				reads <- chunk{err: err}
				return
			}
		}
	}()

	// busy is true while a foreground command is running inside runLine's
	// blocking Dispatch call. runLine itself runs on its own goroutine
	// (started by startLine below) so this select loop keeps draining reads
	// concurrently and can route a queued ^C to the interrupt dispatcher
	// without waiting for the command to return, per the concurrency
	// model's suspension points (read of input bytes; the Command Runner
	// call itself).
	busy := false
	done := make(chan bool)
	var pending []lineeditor.Event

	startLine := func(text string) {
		busy = true
		go func() {
			done <- s.runLine(ctx, text)
		}()
	}

	// drain processes queued editor events (a pasted chunk can raise more
	// than one) until one starts a foreground command, leaving the rest
	// queued for when it completes.
	drain := func() {
		for len(pending) > 0 {
			ev := pending[0]
			pending = pending[1:]
			if line, ok := ev.(lineeditor.Line); ok {
				startLine(line.Text)
				return
			}
			s.handleEvent(ev)
		}
	}

	for !s.exiting {
		select {
		case <-ctx.Done():
			s.exiting = true
		case exit := <-done:
			busy = false
			if exit {
				s.exiting = true
			}
			if s.exiting {
				continue
			}
			if len(pending) > 0 {
				drain()
				continue
			}
			s.writePrompt()
		case c, ok := <-reads:
			if !ok || c.err != nil {
				s.exiting = true
				break
			}
			if busy {
				if bytes.IndexByte(c.data, term.Interrupt[0]) >= 0 {
					s.dispatch.Interrupt()
				}
				continue
			}
			pending = append(pending, s.editor.Feed(c.data)...)
			drain()
		}
	}

	if busy {
		<-done
	}
	if err := s.Close(); err != nil {
		s.log.WithError(err).Warn("shutdown: failed to persist history")
	}
	return s.lastExit
}

func (s *Shell) handleEvent(ev lineeditor.Event) {
	switch e := ev.(type) {
	case lineeditor.Eof:
		s.exiting = true
	case lineeditor.Interrupt:
		s.adapter.Write([]byte("\r\n"))
		s.writePrompt()
	case lineeditor.Completion:
		s.renderCandidates(e.Info)
		s.editor.Resume()
	case lineeditor.IoError:
		s.log.WithError(e.Err).Warn("terminal write failed, aborting current readline")
	}
}

// runLine runs one accepted line to completion and reports whether it was
// an "exit" builtin, so its caller (the Run loop's own goroutine) applies
// the exit request rather than racing on s.exiting from a second goroutine.
func (s *Shell) runLine(ctx context.Context, text string) (exitRequested bool) {
	s.adapter.Write([]byte("\r\n"))
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if code, handled, exit := s.runBuiltin(trimmed); handled {
		s.lastExit = code
		s.hist.Add(text)
		return exit
	}

	code, err := s.dispatch.Dispatch(ctx, text)
	s.lastExit = code
	s.hist.Add(text)
	if err != nil {
		s.reportError(classify(err))
	}
	return false
}

// RunOnce runs a single line as a one-shot subshell invocation, the way
// cmd/ivish handles being invoked with arguments instead of interactively.
func (s *Shell) RunOnce(ctx context.Context, line string) int {
	trimmed := strings.TrimSpace(line)
	if code, handled, _ := s.runBuiltin(trimmed); handled {
		s.lastExit = code
		return code
	}
	code, err := s.dispatch.Dispatch(ctx, line)
	s.lastExit = code
	if err != nil {
		s.reportError(classify(err))
	}
	return code
}

// runBuiltin intercepts a bare (non-piped, non-sequenced) built-in
// invocation. Anything more complex, such as a builtin used as a pipe stage
// or chained with ";", is left to the dispatcher, which already wraps an
// unknown-to-the-host pipe stage head (including a builtin) in an "ivish ..."
// subshell invocation via its own IsBuiltin hook.
func (s *Shell) runBuiltin(line string) (code int, handled bool, exit bool) {
	res := tokenizer.Tokenize(line)
	if len(res.Tokens) == 0 || len(res.Delimiters) > 0 {
		return 0, false, false
	}
	name := res.Tokens[0].Content
	if !s.isBuiltin(name) {
		return 0, false, false
	}
	args := make([]string, len(res.Tokens)-1)
	for i, t := range res.Tokens[1:] {
		args[i] = t.Content
	}

	switch name {
	case "exit":
		return s.dispatch.LastExitCode(), true, true
	case "help":
		s.builtinHelp()
		return 0, true, false
	case "history":
		s.builtinHistory()
		return 0, true, false
	case "alias":
		return s.builtinAlias(args), true, false
	case "unalias":
		return s.builtinUnalias(args), true, false
	}
	return 0, false, false
}

func (s *Shell) builtinHelp() {
	if s.HelpFunc != nil {
		s.HelpFunc(s.out)
		return
	}
	fmt.Fprint(s.out, "ivish: alias, unalias, exit, help, history are built in; "+
		"everything else runs through the host command registry.\r\n")
}

func (s *Shell) builtinHistory() {
	for i, item := range s.hist.Items() {
		fmt.Fprintf(s.out, "%5d  %s\r\n", i+1, item)
	}
}

func (s *Shell) builtinAlias(args []string) int {
	if len(args) == 0 {
		names := s.aliases.Names()
		sort.Strings(names)
		for _, n := range names {
			v, _ := s.aliases.Lookup(n)
			fmt.Fprintf(s.out, "%s\r\n", alias.FormatDefinition(n, v))
		}
		return 0
	}

	code := 0
	for _, arg := range args {
		name, value := alias.ParseDefinition(arg)
		if value != nil {
			// Redefining an existing alias, even identically, is not an
			// error; Engine.Define already treats it as a plain overwrite.
			if err := s.aliases.Define(name, *value); err != nil {
				fmt.Fprintf(s.out, "%s\r\n", err)
				code = 1
			}
			continue
		}
		v, ok := s.aliases.Lookup(name)
		if !ok {
			fmt.Fprintf(s.out, "alias: %s: not found\r\n", name)
			code = 1
			continue
		}
		fmt.Fprintf(s.out, "%s\r\n", alias.FormatDefinition(name, v))
	}
	return code
}

func (s *Shell) builtinUnalias(args []string) int {
	if len(args) == 0 {
		return 0
	}
	if len(args) == 1 && args[0] == "-a" {
		s.aliases.RemoveAll()
		return 0
	}
	code := 0
	for _, name := range args {
		if !s.aliases.Remove(name) {
			fmt.Fprintf(s.out, "unalias: %s: not found\r\n", name)
			code = 1
		}
	}
	return code
}

// classify wraps a dispatcher.ShellError with the matching sentinel from
// this package so callers can use errors.Is against the error kinds named
// in the shell design's error-handling section, instead of string-matching
// the message.
func classify(err error) error {
	var se *dispatcher.ShellError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case strings.HasPrefix(se.Message, "unfinished"):
		return fmt.Errorf("%w: %s", ErrUnfinishedQuote, se.Message)
	case strings.HasPrefix(se.Message, "invalid delimiters"):
		return fmt.Errorf("%w: %s", ErrInvalidDelimiters, se.Message)
	case strings.HasSuffix(se.Message, "command not found"):
		return fmt.Errorf("%w: %s", ErrCommandNotFound, se.Message)
	default:
		return se
	}
}

// reportError renders a ShellError in bold red, per the shell design's
// error-handling section. Output goes through the same descriptor as
// everything else: the concurrency model's stdout/stderr unification rule
// already collapses both streams onto one TTY destination.
func (s *Shell) reportError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(s.out, "%s%s%s\r\n", term.ForegroundColor8(1, true), err.Error(), term.ResetColor)
}

func (s *Shell) writePrompt() {
	s.adapter.Write([]byte(promptString))
}

// renderCandidates prints a Tab-completion candidate list, falling back to
// a bordered Region when the full grid would not fit the terminal in one
// screenful.
func (s *Shell) renderCandidates(info hostiface.Completion) {
	s.adapter.Write([]byte("\r\n"))
	if len(info.Candidates) == 0 {
		return
	}

	cols, rows := 80, 24
	if c, r, err := s.adapter.Size(); err == nil {
		cols, rows = c, r
	}

	width := 0
	for _, c := range info.Candidates {
		if len(c) > width {
			width = len(c)
		}
	}
	width += 2
	perRow := cols / width
	if perRow < 1 {
		perRow = 1
	}
	neededRows := (len(info.Candidates) + perRow - 1) / perRow

	if neededRows+2 > rows {
		s.renderCandidatesInRegion(info.Candidates, cols, rows)
		return
	}
	for i, c := range info.Candidates {
		fmt.Fprintf(s.out, "%-*s", width, c)
		if (i+1)%perRow == 0 {
			s.adapter.Write([]byte("\r\n"))
		}
	}
	s.adapter.Write([]byte("\r\n"))
}

func (s *Shell) renderCandidatesInRegion(candidates []string, cols, rows int) {
	h := rows - 2
	if h < 3 {
		h = 3
	}
	region := s.adapter.NewRegion(cols-2, h, 1, 1)
	region.SetBorder(term.SimpleBorder)
	region.Draw()
	for i, c := range candidates {
		if i >= h-2 {
			break
		}
		s.adapter.SetCursor(2, 2+i)
		s.adapter.Write([]byte(c))
	}
	s.adapter.Write([]byte("\r\n"))
}
