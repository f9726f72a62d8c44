// Command ivish is the standalone CLI entrypoint for the embedded shell
// library: invoked with no arguments it starts the interactive loop;
// invoked with arguments it runs them, joined by a single space, as one
// subshell command line and exits with the resulting code.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/terrychou/ivish/internal/hostiface/demo"
	"github.com/terrychou/ivish/internal/shell"
	"github.com/terrychou/ivish/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg := shell.ConfigFromEnv()
	exitCode := 0

	root := &cobra.Command{
		Use:           "ivish [command line...]",
		Short:         "an embedded interactive line-editing shell",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode = runShell(cmd.Context(), cfg, args)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.HistoryFile, "history-file", cfg.HistoryFile, "path to the plain-text history file (overrides $IVISH_HISTORY_FILE)")
	flags.StringVar(&cfg.CommandDBPath, "cmd-db", cfg.CommandDBPath, "path to the command property database (overrides $IVISH_CMD_DB)")
	flags.IntVar(&cfg.UnfinishedQuoteColor, "hint-color", cfg.UnfinishedQuoteColor, "256-colour index for the unfinished-quote highlight")
	flags.IntVar(&cfg.InvalidPipeColor, "pipe-hint-color", cfg.InvalidPipeColor, "256-colour index for invalid pipe delimiters")
	flags.IntVar(&cfg.InvalidSeparatorColor, "sep-hint-color", cfg.InvalidSeparatorColor, "256-colour index for invalid command separators")

	root.SetArgs(argv)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ivish:", err)
		return 1
	}
	return exitCode
}

func runShell(ctx context.Context, cfg shell.Config, args []string) int {
	adapter := term.NewAdapter(os.Stdin, os.Stdout)
	if adapter.IsTTY() {
		if err := adapter.MakeRaw(); err != nil {
			fmt.Fprintln(os.Stderr, "ivish:", err)
			return 1
		}
		defer adapter.Restore()
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	completer := demo.FileCompleter{Dir: ".", Commands: pathCommands()}

	sh, err := shell.New(adapter, osRunner{}, completer, nil, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ivish:", err)
		return 1
	}
	defer sh.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			sh.Interrupt()
		}
	}()

	if len(args) > 0 {
		return sh.RunOnce(ctx, strings.Join(args, " "))
	}
	return sh.Run(ctx)
}

// pathCommands enumerates executable names on $PATH once at startup, giving
// the demo completion provider something real to offer for command-position
// Tab completion instead of an empty candidate list.
func pathCommands() []string {
	seen := map[string]bool{}
	var names []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
