// Package demo provides minimal, in-process implementations of the
// hostiface collaborator interfaces so that the shell can be exercised and
// tested without a real host application. None of this is meant to be a
// production command runner or completion engine: real filename globbing
// and real process execution stay host concerns, per the shell design's
// scope.
package demo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/terrychou/ivish/internal/hostiface"
)

// Func is a trivial function-backed command, used to register built-ins
// that the demo runner can execute directly without a real process model.
type Func func(ctx context.Context, args []string, stdout, stderr hostiface.FileLike) int

// Runner is an in-memory CommandRunner backed by a registry of Go
// functions, standing in for the host's real worker-thread dispatch.
type Runner struct {
	commands map[string]Func
}

// NewRunner returns a Runner with no registered commands.
func NewRunner() *Runner {
	return &Runner{commands: map[string]Func{}}
}

// Register adds or replaces the function behind name.
func (r *Runner) Register(name string, fn Func) {
	r.commands[name] = fn
}

// Known reports whether name was registered.
func (r *Runner) Known(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Run looks up the command named by the first word of req.CommandLine and
// invokes it, splitting the remainder naively on spaces. Pipelines are not
// interpreted: for a piped command line, the "|" delimiters and later stages
// are passed to the first command as plain arguments.
func (r *Runner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	fields := strings.Fields(req.CommandLine)
	if len(fields) == 0 {
		return 0, nil
	}
	fn, ok := r.commands[fields[0]]
	if !ok {
		return 127, fmt.Errorf("demo: %s: command not found", fields[0])
	}
	stdout, stderr := req.Stdout, req.Stderr
	if stderr == nil {
		stderr = stdout
	}
	return fn(ctx, fields[1:], stdout, stderr), nil
}

// FileCompleter is a filesystem-backed CompletionProvider scoped to a single
// working directory, intentionally simple: it lists directory entries whose
// name has the typed prefix. Real hosts are expected to supply their own
// richer provider (available-command enumeration, real globbing, etc).
type FileCompleter struct {
	Dir      string
	Commands []string
}

// Complete implements hostiface.CompletionProvider.
func (f FileCompleter) Complete(beforeCursor string) hostiface.Completion {
	fields := strings.Fields(beforeCursor)
	site := hostiface.SiteFilename
	prefix := ""
	switch {
	case len(fields) == 0, len(fields) == 1 && !strings.HasSuffix(beforeCursor, " "):
		site = hostiface.SiteCommand
		if len(fields) == 1 {
			prefix = fields[0]
		}
	default:
		last := fields[len(fields)-1]
		if strings.HasPrefix(last, "-") {
			site = hostiface.SiteOption
		}
		prefix = last
	}

	var candidates []string
	switch site {
	case hostiface.SiteCommand:
		for _, c := range f.Commands {
			if strings.HasPrefix(c, prefix) {
				candidates = append(candidates, c)
			}
		}
	default:
		entries, err := os.ReadDir(f.Dir)
		if err == nil {
			for _, e := range entries {
				name := e.Name()
				if !strings.HasPrefix(name, prefix) {
					continue
				}
				if e.IsDir() {
					name += string(filepath.Separator)
				}
				candidates = append(candidates, name)
			}
		}
	}
	sort.Strings(candidates)

	return hostiface.Completion{
		Site:         site,
		Candidates:   candidates,
		CommonPrefix: commonPrefix(candidates, prefix),
	}
}

func commonPrefix(candidates []string, typed string) string {
	if len(candidates) < 2 {
		return ""
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		prefix = sharedPrefix(prefix, c)
		if len(prefix) <= len(typed) {
			return ""
		}
	}
	if len(prefix) <= len(typed) {
		return ""
	}
	return prefix[len(typed):]
}

func sharedPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
