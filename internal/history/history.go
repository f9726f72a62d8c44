// Package history implements the bounded, navigable command-line history
// described in the shell design: an ordered list of previously entered
// lines, a browse cursor, and a "pending" cache for the line being edited
// when the user starts browsing with the up/down arrows.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terrychou/ivish/internal/editbuffer"
)

// DefaultMaxItems is the default bound on the number of retained entries.
const DefaultMaxItems = 100

// Store is an ordered, bounded history of entered lines.
//
// index == len(items) means "not browsing" and cache is unset; any other
// value means the buffer passed to Prev/Next is being overwritten from
// items[index], and cache holds the snapshot taken when browsing began.
type Store struct {
	items    []string
	maxItems int
	index    int
	cache    *string
}

// New returns an empty Store bounded to maxItems entries. A non-positive
// maxItems falls back to DefaultMaxItems.
func New(maxItems int) *Store {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Store{maxItems: maxItems}
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	return len(s.items)
}

// Items returns a copy of the retained entries, oldest first.
func (s *Store) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Browsing reports whether the store is currently walking history rather
// than sitting at the live edit line.
func (s *Store) Browsing() bool {
	return s.index != len(s.items)
}

// Add appends a line, truncating from the front if the store is over
// capacity, and resets the browse cursor to "not browsing".
func (s *Store) Add(line string) {
	s.items = append(s.items, line)
	if over := len(s.items) - s.maxItems; over > 0 {
		s.items = append([]string{}, s.items[over:]...)
	}
	s.index = len(s.items)
	s.cache = nil
}

// Prev moves one entry further into the past, overwriting buf with it. If
// the store was not browsing, buf's current contents are snapshotted into
// cache first. At the oldest entry, Prev is a no-op (buf is still
// overwritten with the same oldest entry, matching the "repeated prev stops
// moving" scenario).
func (s *Store) Prev(buf *editbuffer.Buffer) {
	if len(s.items) == 0 {
		return
	}
	if !s.Browsing() {
		snap := buf.String()
		s.cache = &snap
		s.index = len(s.items) - 1
	} else if s.index > 0 {
		s.index--
	}
	buf.Reset(s.items[s.index])
}

// Next moves one entry toward the present, overwriting buf with it. Moving
// past the newest entry restores the cached pending line and leaves the
// store not-browsing. Next is a no-op while not browsing.
func (s *Store) Next(buf *editbuffer.Buffer) {
	if !s.Browsing() {
		return
	}
	if s.index == len(s.items)-1 {
		s.ResetToCache(buf)
		return
	}
	s.index++
	buf.Reset(s.items[s.index])
}

// ResetToCache restores buf from the pending cache (if any) and stops
// browsing.
func (s *Store) ResetToCache(buf *editbuffer.Buffer) {
	if s.cache != nil {
		buf.Reset(*s.cache)
	}
	s.cache = nil
	s.index = len(s.items)
}

// Load reads a plain-text, one-entry-per-line, UTF-8 history file, trims it
// to maxItems (keeping the most recent), and resets the browse cursor.
// A missing file is not an error; Load simply leaves the store empty.
func Load(path string, maxItems int) (*Store, error) {
	s := New(maxItems)
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("history: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return s, fmt.Errorf("history: read %s: %w", path, err)
	}

	if over := len(lines) - s.maxItems; over > 0 {
		lines = lines[over:]
	}
	s.items = lines
	s.index = len(s.items)
	return s, nil
}

// Save atomically writes the history to path: one entry per line, UTF-8,
// written to a temporary file in the same directory and renamed into place
// so a crash mid-write never leaves a truncated history file behind.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	for _, line := range s.items {
		if _, err := w.WriteString(line); err != nil {
			tmp.Close()
			return fmt.Errorf("history: write %s: %w", path, err)
		}
		if _, err := w.WriteString("\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("history: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("history: flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("history: rename into %s: %w", path, err)
	}
	return nil
}
