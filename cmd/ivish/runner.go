package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"

	"github.com/terrychou/ivish/internal/hostiface"
)

// osRunner is the standalone binary's Command Runner: it executes each
// assembled segment through "sh -c" (sh as found on $PATH), the simplest way to give
// ivish real external commands without reimplementing a process model. A
// real embedding host would supply its own CommandRunner instead (the shell
// design treats this as an external collaborator, not core shell logic).
type osRunner struct{}

func (osRunner) Known(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (osRunner) Run(ctx context.Context, req hostiface.RunRequest) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", req.CommandLine)
	cmd.Env = append(os.Environ(),
		"COLUMNS="+strconv.Itoa(req.Columns),
		"LINES="+strconv.Itoa(req.Lines),
	)

	if req.Stdin != nil {
		cmd.Stdin = req.Stdin
	} else {
		cmd.Stdin = os.Stdin
	}
	if req.Stdout != nil {
		cmd.Stdout = req.Stdout
	} else {
		cmd.Stdout = os.Stdout
	}
	switch {
	case req.Stderr != nil:
		cmd.Stderr = req.Stderr
	case req.Stdout != nil:
		cmd.Stderr = req.Stdout
	default:
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 1, err
}
