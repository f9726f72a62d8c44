package term

import "fmt"

// Escape sequence builders. Each function returns the literal byte sequence
// to write to the terminal; the line editor concatenates these into a single
// write per redraw rather than issuing one write per escape.
const esc = "\x1b["

// CursorForward moves the cursor right by n columns.
func CursorForward(n int) string { return countSeq(n, "C") }

// CursorBackward moves the cursor left by n columns.
func CursorBackward(n int) string { return countSeq(n, "D") }

// CursorUp moves the cursor up by n rows without changing column.
func CursorUp(n int) string { return countSeq(n, "A") }

// CursorDown moves the cursor down by n rows without changing column.
func CursorDown(n int) string { return countSeq(n, "B") }

// CursorUpHome moves the cursor up n rows and to column 1.
func CursorUpHome(n int) string { return countSeq(n, "F") }

// CursorDownHome moves the cursor down n rows and to column 1.
func CursorDownHome(n int) string { return countSeq(n, "E") }

// CursorColumn moves the cursor to column n (1-indexed).
func CursorColumn(n int) string { return countSeq(n, "G") }

func countSeq(n int, final string) string {
	if n <= 0 {
		n = 1
	}
	return fmt.Sprintf("%s%d%s", esc, n, final)
}

// EraseToEndOfLine erases from the cursor to the end of the current line.
const EraseToEndOfLine = esc + "K"

// EraseLine erases the entire current line, leaving the cursor in place.
const EraseLine = esc + "2K"

// ClearScreen clears the whole screen without moving the cursor.
const ClearScreen = esc + "2J"

// HomeCursor moves the cursor to row 1, column 1.
const HomeCursor = esc + "H"

// SaveCursor stores the current cursor position.
const SaveCursor = esc + "s"

// RestoreCursor returns the cursor to the last saved position.
const RestoreCursor = esc + "u"

// ScrollUp scrolls the screen up by n lines.
func ScrollUp(n int) string { return countSeq(n, "S") }

// ScrollDown scrolls the screen down by n lines.
func ScrollDown(n int) string { return countSeq(n, "T") }

// QueryCursorPosition asks the terminal to report its cursor position (the
// reply arrives on the input stream as ESC [ row ; col R; the line editor's
// escape decoder does not recognise that reply).
const QueryCursorPosition = esc + "6n"

// ForegroundColor8 selects one of the 8 standard ANSI foreground colors
// (0-7), optionally bold.
func ForegroundColor8(color int, bold bool) string {
	code := 30 + (color & 7)
	if bold {
		return fmt.Sprintf("%s1;%dm", esc, code)
	}
	return fmt.Sprintf("%s%dm", esc, code)
}

// ForegroundColor256 selects one of the 256 extended-palette foreground
// colors, used for syntax and error hint highlighting.
func ForegroundColor256(color int) string {
	return fmt.Sprintf("%s38;5;%dm", esc, color&0xff)
}

// ResetColor restores the terminal's default foreground/background/attributes.
const ResetColor = esc + "0m"

// SetCursorPos places the cursor at a 1-indexed row/column; Adapter.SetCursor
// uses it for absolute positioning.
func SetCursorPos(row, col int) string {
	return fmt.Sprintf("%s%d;%dH", esc, row, col)
}
