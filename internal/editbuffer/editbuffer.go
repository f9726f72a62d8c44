// Package editbuffer implements the logical text-under-edit that the line
// editor mutates: a slice of grapheme clusters plus a cursor, with no I/O of
// its own. Every
// mutating operation reports whether it actually changed anything, so the
// caller can surface a "no-op" (e.g. ring a bell) without duplicating the
// boundary checks itself.
package editbuffer

import (
	"strings"

	"github.com/rivo/uniseg"
)

// CellWidth reports how many terminal columns a string occupies. The shell
// injects its own implementation (see the term package's default); editbuffer
// never assumes one globally.
type CellWidth func(s string) int

// Buffer is the logical text under edit plus a cursor. The cursor is always
// a valid insertion point (0..=len(Text)) and never splits a grapheme
// cluster: Insert/Delete/Backspace/movement all operate in terms of
// grapheme-like units produced by github.com/rivo/uniseg, the same
// segmentation library akavel/up's bufview uses for its own cursor math.
type Buffer struct {
	text   []string // grapheme clusters
	cursor int      // index into text, 0..=len(text)
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

func graphemes(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		out = append(out, cluster)
	}
	return out
}

// Reset replaces the buffer's contents with s and moves the cursor to its
// end.
func (b *Buffer) Reset(s string) {
	b.text = graphemes(s)
	b.cursor = len(b.text)
}

// ReplaceAll replaces the buffer's contents, preserving the cursor if it
// still fits, otherwise clamping it to the new end.
func (b *Buffer) ReplaceAll(s string) {
	b.text = graphemes(s)
	if b.cursor > len(b.text) {
		b.cursor = len(b.text)
	}
}

// String returns the buffer's full contents.
func (b *Buffer) String() string {
	return strings.Join(b.text, "")
}

// Len returns the number of grapheme clusters in the buffer.
func (b *Buffer) Len() int {
	return len(b.text)
}

// Cursor returns the current cursor position in grapheme units.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Before returns the text before the cursor.
func (b *Buffer) Before() string {
	return strings.Join(b.text[:b.cursor], "")
}

// After returns the text at and after the cursor.
func (b *Buffer) After() string {
	return strings.Join(b.text[b.cursor:], "")
}

// CharAtCursor returns the grapheme cluster at the cursor, or "" at end of
// line.
func (b *Buffer) CharAtCursor() string {
	if b.cursor >= len(b.text) {
		return ""
	}
	return b.text[b.cursor]
}

// InsertChar inserts s (typically one grapheme cluster, but any string is
// accepted) at the cursor and advances the cursor past it.
func (b *Buffer) InsertChar(s string) bool {
	if s == "" {
		return false
	}
	ins := graphemes(s)
	b.text = append(b.text[:b.cursor:b.cursor], append(ins, b.text[b.cursor:]...)...)
	b.cursor += len(ins)
	return true
}

// Backspace deletes the grapheme before the cursor.
func (b *Buffer) Backspace() bool {
	if b.cursor == 0 {
		return false
	}
	b.text = append(b.text[:b.cursor-1], b.text[b.cursor:]...)
	b.cursor--
	return true
}

// DeleteChar deletes the grapheme at the cursor (forward delete).
func (b *Buffer) DeleteChar() bool {
	if b.cursor >= len(b.text) {
		return false
	}
	b.text = append(b.text[:b.cursor], b.text[b.cursor+1:]...)
	return true
}

// MoveHome moves the cursor to position 0.
func (b *Buffer) MoveHome() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor = 0
	return true
}

// MoveEnd moves the cursor to the end of the buffer.
func (b *Buffer) MoveEnd() bool {
	if b.cursor == len(b.text) {
		return false
	}
	b.cursor = len(b.text)
	return true
}

// MoveLeft moves the cursor one grapheme to the left.
func (b *Buffer) MoveLeft() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	return true
}

// MoveRight moves the cursor one grapheme to the right.
func (b *Buffer) MoveRight() bool {
	if b.cursor >= len(b.text) {
		return false
	}
	b.cursor++
	return true
}

// MoveLeftBy moves the cursor left by n graphemes, clamping at 0.
func (b *Buffer) MoveLeftBy(n int) bool {
	if n <= 0 || b.cursor == 0 {
		return false
	}
	next := b.cursor - n
	if next < 0 {
		next = 0
	}
	moved := next != b.cursor
	b.cursor = next
	return moved
}

func isSpace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}
	return false
}

// MoveWordLeft skips any run of whitespace immediately to the left, then any
// run of non-whitespace, landing the cursor at the start of the previous
// word.
func (b *Buffer) MoveWordLeft() bool {
	start := b.cursor
	i := b.cursor
	for i > 0 && isSpace(b.text[i-1]) {
		i--
	}
	for i > 0 && !isSpace(b.text[i-1]) {
		i--
	}
	b.cursor = i
	return i != start
}

// MoveWordRight skips any run of whitespace immediately to the right, then
// any run of non-whitespace, landing the cursor at the end of the next word
// (or end of buffer).
func (b *Buffer) MoveWordRight() bool {
	start := b.cursor
	i := b.cursor
	n := len(b.text)
	for i < n && isSpace(b.text[i]) {
		i++
	}
	for i < n && !isSpace(b.text[i]) {
		i++
	}
	b.cursor = i
	return i != start
}

// DeleteWordLeft deletes from the start of the previous word up to the
// cursor.
func (b *Buffer) DeleteWordLeft() bool {
	start := b.cursor
	end := b.cursor
	i := b.cursor
	for i > 0 && isSpace(b.text[i-1]) {
		i--
	}
	for i > 0 && !isSpace(b.text[i-1]) {
		i--
	}
	if i == start {
		return false
	}
	b.text = append(b.text[:i], b.text[end:]...)
	b.cursor = i
	return true
}

// DeleteToHome deletes from the start of the buffer up to the cursor.
func (b *Buffer) DeleteToHome() bool {
	if b.cursor == 0 {
		return false
	}
	b.text = append([]string{}, b.text[b.cursor:]...)
	b.cursor = 0
	return true
}

// DeleteToEnd deletes from the cursor to the end of the buffer.
func (b *Buffer) DeleteToEnd() bool {
	if b.cursor >= len(b.text) {
		return false
	}
	b.text = b.text[:b.cursor]
	return true
}

// WidthBeforeCursor sums cw over the text before the cursor.
func (b *Buffer) WidthBeforeCursor(cw CellWidth) int {
	return cw(b.Before())
}

// WidthAfterCursor sums cw over the text at and after the cursor.
func (b *Buffer) WidthAfterCursor(cw CellWidth) int {
	return cw(b.After())
}
