// Package lineeditor implements the terminal-facing line editor: it
// consumes raw input bytes, decodes control codes and cursor-key escape
// sequences, mutates an editbuffer.Buffer, and redraws the line in place
// using a single concatenated ANSI escape sequence per keystroke. Completed
// lines, EOF, interrupts, Tab completions, and I/O errors are surfaced as a
// typed Event rather than a raw string comparison.
package lineeditor

import (
	"strings"

	"github.com/terrychou/ivish/internal/editbuffer"
	"github.com/terrychou/ivish/internal/history"
	"github.com/terrychou/ivish/internal/hostiface"
	"github.com/terrychou/ivish/internal/tokenizer"
	"github.com/terrychou/ivish/term"
)

// Event is anything the editor can hand back to its caller in response to
// input bytes.
type Event interface{ isEvent() }

// Line is raised on Enter, or on ^D with a non-empty buffer.
type Line struct{ Text string }

// Eof is raised on ^D with an empty buffer.
type Eof struct{}

// Interrupt is raised on ^C.
type Interrupt struct{}

// Completion is raised when Tab produces more than one candidate.
type Completion struct{ Info hostiface.Completion }

// IoError is raised when a write to the terminal failed.
type IoError struct{ Err error }

func (Line) isEvent()       {}
func (Eof) isEvent()        {}
func (Interrupt) isEvent()  {}
func (Completion) isEvent() {}
func (IoError) isEvent()    {}

// Control codes recognised outside of an escape sequence, named for the key
// that sends them but drawn from term's control-code vocabulary rather than
// restated as bare hex literals.
const (
	ctrlA = term.SOH
	ctrlB = term.STX
	ctrlC = term.ETX
	ctrlD = term.EOT
	ctrlE = term.ENQ
	ctrlF = term.ACK
	ctrlH = term.BS
	tab   = term.TAB
	lf    = term.LF
	ctrlK = term.VT
	ctrlN = term.SO
	ctrlP = term.DLE
	ctrlT = term.DC4
	ctrlU = term.NAK
	ctrlW = term.ETB
	ctrlY = term.EM
	esc   = term.ESC
	del   = term.DEL
	cr    = term.CR
)

type escState int

const (
	escIdle     escState = iota
	escStarted           // just saw ESC
	escBracket           // ESC [
	escBracketN          // ESC [ digit
	escO                 // ESC O
)

// HintColors selects the 256-color indices used to highlight unfinished
// quotes and invalid delimiters, defaulting to 178 per the shell design.
type HintColors struct {
	UnfinishedQuote  int
	InvalidPipe      int
	InvalidSeparator int
}

// DefaultHintColors returns the shell design's default hint palette.
func DefaultHintColors() HintColors {
	return HintColors{UnfinishedQuote: 178, InvalidPipe: 178, InvalidSeparator: 178}
}

// Editor is the terminal-facing line editor. It owns the edit buffer and
// the terminal adapter; the history store, completion provider, and cell
// width function are borrowed from the shell.
type Editor struct {
	Buf  *editbuffer.Buffer
	Hist *history.Store

	Adapter   *term.Adapter
	Completer hostiface.CompletionProvider
	CellWidth hostiface.CellWidthFunc

	HintFunc    func(line string) string
	SublineFunc func(line string) string

	Colors HintColors

	escState escState
	escDigit byte

	keptLine       *editbuffer.Buffer
	sublineShown   bool
	priorCellWidth int // width_before_cursor as of the last redraw (old_cursor_loc)
}

// New returns an Editor with an empty buffer and the default hint palette.
func New(adapter *term.Adapter, hist *history.Store, completer hostiface.CompletionProvider, cellWidth hostiface.CellWidthFunc) *Editor {
	return &Editor{
		Buf:       editbuffer.New(),
		Hist:      hist,
		Adapter:   adapter,
		Completer: completer,
		CellWidth: cellWidth,
		Colors:    DefaultHintColors(),
	}
}

// Feed processes a chunk of raw input bytes, returning any events raised
// along the way (normally 0 or 1, but a pasted chunk containing an Enter
// followed by more text can raise more than one). Feed assumes each call
// receives UTF-8-aligned input, true of ordinary raw-mode tty reads.
func (e *Editor) Feed(data []byte) []Event {
	var events []Event
	for _, r := range string(data) {
		if ev := e.handleRune(r); ev != nil {
			events = append(events, ev)
		}
	}
	if e.escState == escStarted {
		// A lone ESC with no follow-up byte in this chunk: reset to the
		// history cache, matching an unmodified arrow-key-less Escape press.
		e.escState = escIdle
		e.Hist.ResetToCache(e.Buf)
		e.redraw()
	}
	return events
}

func (e *Editor) handleRune(r rune) Event {
	if e.escState != escIdle {
		return e.handleEscape(r)
	}

	switch r {
	case esc:
		e.escState = escStarted
		return nil
	case ctrlA:
		e.moveOrBeep(e.Buf.MoveHome())
	case ctrlE:
		e.moveOrBeep(e.Buf.MoveEnd())
	case ctrlB:
		e.moveOrBeep(e.Buf.MoveLeft())
	case ctrlF:
		e.moveOrBeep(e.Buf.MoveRight())
	case ctrlT:
		e.moveOrBeep(e.Buf.MoveWordLeft())
	case ctrlY:
		e.moveOrBeep(e.Buf.MoveWordRight())
	case ctrlP:
		e.Hist.Prev(e.Buf)
		e.redraw()
	case ctrlN:
		e.Hist.Next(e.Buf)
		e.redraw()
	case ctrlU:
		e.moveOrBeep(e.Buf.DeleteToHome())
	case ctrlK:
		e.moveOrBeep(e.Buf.DeleteToEnd())
	case ctrlW:
		e.moveOrBeep(e.Buf.DeleteWordLeft())
	case ctrlH, del:
		e.moveOrBeep(e.Buf.Backspace())
	case ctrlD:
		if e.Buf.Len() == 0 {
			return Eof{}
		}
		e.moveOrBeep(e.Buf.DeleteChar())
	case ctrlC:
		return Interrupt{}
	case cr, lf:
		return e.accept()
	case tab:
		return e.handleTab()
	default:
		if r >= 0x20 && r != del {
			e.Buf.InsertChar(string(r))
			e.redraw()
		}
	}
	return nil
}

func (e *Editor) handleEscape(r rune) Event {
	switch e.escState {
	case escStarted:
		switch r {
		case '[':
			e.escState = escBracket
		case 'O':
			e.escState = escO
		default:
			e.escState = escIdle
		}
	case escBracket:
		switch r {
		case 'A':
			e.Hist.Prev(e.Buf)
			e.redraw()
			e.escState = escIdle
		case 'B':
			e.Hist.Next(e.Buf)
			e.redraw()
			e.escState = escIdle
		case 'C':
			e.moveOrBeep(e.Buf.MoveRight())
			e.escState = escIdle
		case 'D':
			e.moveOrBeep(e.Buf.MoveLeft())
			e.escState = escIdle
		case 'H':
			e.moveOrBeep(e.Buf.MoveHome())
			e.escState = escIdle
		case 'F':
			e.moveOrBeep(e.Buf.MoveEnd())
			e.escState = escIdle
		case '1', '3', '4', '7':
			e.escDigit = byte(r)
			e.escState = escBracketN
		default:
			e.escState = escIdle
		}
	case escBracketN:
		if r == '~' {
			switch e.escDigit {
			case '1', '7':
				e.moveOrBeep(e.Buf.MoveHome())
			case '3':
				e.moveOrBeep(e.Buf.DeleteChar())
			case '4':
				e.moveOrBeep(e.Buf.MoveEnd())
			}
		}
		e.escState = escIdle
	case escO:
		switch r {
		case 'H':
			e.moveOrBeep(e.Buf.MoveHome())
		case 'F':
			e.moveOrBeep(e.Buf.MoveEnd())
		}
		e.escState = escIdle
	}
	return nil
}

func (e *Editor) moveOrBeep(moved bool) {
	if !moved {
		if e.Adapter != nil {
			e.Adapter.Write([]byte{term.BEL})
		}
		return
	}
	e.redraw()
}

func (e *Editor) accept() Event {
	text := e.Buf.String()
	e.clearSubline()
	e.Buf.Reset("")
	return Line{Text: text}
}

// handleTab runs completion against the text before the cursor.
func (e *Editor) handleTab() Event {
	if e.Completer == nil {
		return nil
	}
	before := e.Buf.Before()
	info := e.Completer.Complete(before)

	switch len(info.Candidates) {
	case 0:
		return nil
	case 1:
		typed := lastWord(before)
		candidate := info.Candidates[0]
		remainder := candidate
		if strings.HasPrefix(candidate, typed) {
			remainder = candidate[len(typed):]
		}
		e.Buf.InsertChar(remainder)
		atEOL := e.Buf.Cursor() == e.Buf.Len()
		if atEOL && !strings.HasSuffix(candidate, "/") {
			e.Buf.InsertChar(" ")
		}
		e.redraw()
		return nil
	default:
		if info.CommonPrefix != "" {
			e.Buf.InsertChar(info.CommonPrefix)
		}
		kept := editbuffer.New()
		kept.Reset(e.Buf.String())
		e.keptLine = kept
		e.redraw()
		return Completion{Info: info}
	}
}

// Resume restores buffer state retained across a Completion event, the way
// a candidate listing is expected to be redrawn over before the shell
// re-enters readline.
func (e *Editor) Resume() {
	if e.keptLine == nil {
		return
	}
	e.Buf.Reset(e.keptLine.String())
	e.keptLine = nil
	e.redraw()
}

func lastWord(before string) string {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return ""
	}
	if strings.HasSuffix(before, " ") {
		return ""
	}
	return fields[len(fields)-1]
}

type hintItem struct {
	pos   int
	color int
}

func (e *Editor) hints(line string) (beforeCursor, atOrAfter []hintItem) {
	res := tokenizer.Tokenize(line)
	cursor := len(e.Buf.Before())

	add := func(pos, color int) {
		if pos < cursor {
			beforeCursor = append(beforeCursor, hintItem{pos, color})
		} else {
			atOrAfter = append(atOrAfter, hintItem{pos, color})
		}
	}

	for _, d := range res.InvalidDelimiters() {
		switch d.Kind {
		case tokenizer.CommandSep:
			add(d.Position, e.colorOr(e.Colors.InvalidSeparator, 178))
		default:
			add(d.Position, e.colorOr(e.Colors.InvalidPipe, 178))
		}
	}
	if res.Unfinished != nil {
		add(res.Unfinished.Start, e.colorOr(e.Colors.UnfinishedQuote, 178))
	}
	return beforeCursor, atOrAfter
}

func (e *Editor) colorOr(c, def int) int {
	if c == 0 {
		return def
	}
	return c
}

func highlight(s string, offset int, items []hintItem) string {
	if len(items) == 0 || s == "" {
		return s
	}
	colored := make(map[int]int, len(items))
	for _, it := range items {
		colored[it.pos] = it.color
	}
	var b strings.Builder
	for i, r := range []byte(s) {
		if color, ok := colored[offset+i]; ok {
			b.WriteString(term.ForegroundColor256(color))
			b.WriteRune(rune(r))
			b.WriteString(term.ResetColor)
		} else {
			b.WriteByte(r)
		}
	}
	return b.String()
}

// redraw repaints the line in place: move to the start, write the
// before-cursor text with hints, erase to end, write the hint/completion
// text and the after-cursor text, then move the cursor back, and finally
// handle the subline. Everything is concatenated into one write.
func (e *Editor) redraw() {
	if e.Adapter == nil {
		return
	}
	cw := e.CellWidth
	if cw == nil {
		cw = term.DefaultCellWidth
	}

	before := e.Buf.Before()
	after := e.Buf.After()
	beforeWidth := cw(before)
	afterWidth := cw(after)

	beforeHints, afterHints := e.hints(e.Buf.String())

	var b strings.Builder
	if e.priorCellWidth > 0 {
		b.WriteString(term.CursorBackward(e.priorCellWidth))
	}
	b.WriteString(highlight(before, 0, beforeHints))
	b.WriteString(term.EraseToEndOfLine)

	hint := ""
	if e.HintFunc != nil {
		if at := e.Buf.CharAtCursor(); at == "" || at == " " {
			hint = e.HintFunc(e.Buf.String())
		}
	}
	if hint != "" {
		b.WriteString(term.ForegroundColor8(8, false))
		b.WriteString(hint)
		b.WriteString(term.ResetColor)
	}

	b.WriteString(highlight(after, len(before), afterHints))
	if back := afterWidth + cw(hint); back > 0 {
		b.WriteString(term.CursorBackward(back))
	}

	if _, err := e.Adapter.Write([]byte(b.String())); err != nil {
		return
	}
	e.priorCellWidth = beforeWidth

	e.redrawSubline()
}

func (e *Editor) redrawSubline() {
	if e.SublineFunc == nil {
		e.clearSubline()
		return
	}
	text := e.SublineFunc(e.Buf.String())
	if text == "" {
		e.clearSubline()
		return
	}
	var b strings.Builder
	b.WriteString(term.SaveCursor)
	b.WriteString(term.CursorDownHome(1))
	b.WriteString(term.EraseLine)
	b.WriteString(text)
	b.WriteString(term.RestoreCursor)
	e.Adapter.Write([]byte(b.String()))
	e.sublineShown = true
}

func (e *Editor) clearSubline() {
	if !e.sublineShown {
		return
	}
	var b strings.Builder
	b.WriteString(term.SaveCursor)
	b.WriteString(term.CursorDownHome(1))
	b.WriteString(term.EraseLine)
	b.WriteString(term.RestoreCursor)
	e.Adapter.Write([]byte(b.String()))
	e.sublineShown = false
}

