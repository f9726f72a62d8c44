// Package term provides the terminal I/O adapter: it reads bytes from an
// input descriptor, writes bytes to an output descriptor, owns raw-mode
// configuration, and exposes cell-width queries and the ANSI escape
// vocabulary the line editor redraws with. Raw-mode switching goes through
// golang.org/x/term rather than a cgo termios binding, keeping the same
// MakeRaw -> defer Restore lifecycle portable across platforms.
package term

import (
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// Adapter is the host's raw connection to a terminal: an input descriptor,
// an output descriptor, and the raw-mode state needed to restore the
// original settings on exit.
type Adapter struct {
	in  *os.File
	out io.Writer

	fd       int
	hasFd    bool
	rawState *xterm.State
}

// NewAdapter wraps in/out as a terminal I/O adapter. If in is backed by a
// real file descriptor (e.g. os.Stdin), raw-mode switching and size queries
// become available; otherwise (e.g. a test pipe) those calls return an
// error and the adapter behaves as plain byte I/O.
func NewAdapter(in *os.File, out io.Writer) *Adapter {
	a := &Adapter{in: in, out: out}
	if in != nil {
		a.fd = int(in.Fd())
		a.hasFd = true
	}
	return a
}

// Read reads raw bytes from the input descriptor.
func (a *Adapter) Read(p []byte) (int, error) {
	return a.in.Read(p)
}

// Write writes raw bytes to the output descriptor.
func (a *Adapter) Write(p []byte) (int, error) {
	return a.out.Write(p)
}

// IsTTY reports whether the input descriptor is an interactive terminal.
func (a *Adapter) IsTTY() bool {
	return a.hasFd && isatty.IsTerminal(uintptr(a.fd))
}

// MakeRaw switches the terminal to raw mode, remembering the prior state so
// Restore can undo it. Calling MakeRaw twice without an intervening Restore
// is a no-op that returns the already-saved state's error (nil).
func (a *Adapter) MakeRaw() error {
	if !a.hasFd {
		return errNoFd
	}
	if a.rawState != nil {
		return nil
	}
	state, err := xterm.MakeRaw(a.fd)
	if err != nil {
		return err
	}
	a.rawState = state
	return nil
}

// Restore reverts the terminal to the state captured by MakeRaw. It is a
// no-op if MakeRaw was never called or Restore already ran.
func (a *Adapter) Restore() error {
	if !a.hasFd || a.rawState == nil {
		return nil
	}
	err := xterm.Restore(a.fd, a.rawState)
	a.rawState = nil
	return err
}

// Size reports the terminal's width and height in cells. It first tries the
// real ioctl via golang.org/x/term, then falls back to $COLUMNS/$LINES, the
// way the dispatcher's window-size handling is described to do per command
// launch.
func (a *Adapter) Size() (cols, rows int, err error) {
	if a.hasFd {
		if w, h, err := xterm.GetSize(a.fd); err == nil && w > 0 && h > 0 {
			return w, h, nil
		}
		if w, h, err := sizeFromIoctl(a.fd); err == nil {
			return w, h, nil
		}
	}
	return SizeFromEnv()
}

func sizeFromIoctl(fd int) (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// SizeFromEnv reads $COLUMNS/$LINES (defaulting to 80x24), the fallback Size
// uses when no terminal size query succeeds.
func SizeFromEnv() (cols, rows int, err error) {
	cols = atoiDefault(os.Getenv("COLUMNS"), 80)
	rows = atoiDefault(os.Getenv("LINES"), 24)
	return cols, rows, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// DefaultCellWidth is the Cell Width Function used when the host does not
// inject its own: it walks s grapheme cluster by grapheme cluster (via
// rivo/uniseg) and sums each cluster's display width (via
// mattn/go-runewidth), the same pairing akavel/up's bufview uses.
func DefaultCellWidth(s string) int {
	width := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w := 0
		for _, r := range cluster {
			if rw := runewidth.RuneWidth(r); rw > w {
				w = rw
			}
		}
		width += w
	}
	return width
}

type noFdError struct{}

func (noFdError) Error() string { return "term: adapter has no underlying file descriptor" }

var errNoFd = noFdError{}
