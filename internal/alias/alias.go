// Package alias implements the shell's alias-expansion engine: a
// name-to-replacement map, DFS-based translation with per-translation cycle
// breaking, and the textual parsing/quoting rules used by the alias and
// unalias built-ins.
package alias

import (
	"fmt"
	"strings"

	"github.com/terrychou/ivish/internal/tokenizer"
)

// illegal holds every character forbidden in an alias name: the shell-break
// characters, shell-quote characters, backslash, expansion characters, and
// the path separator.
const illegal = "()<>;&| \t\n\"'\\$/"

// ErrInvalidName reports an alias name containing a forbidden character.
type ErrInvalidName struct {
	Name string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("alias: %q: invalid alias name", e.Name)
}

// ValidName reports whether name is legal as an alias name.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, illegal)
}

// Engine stores alias definitions and performs translation.
type Engine struct {
	aliases map[string]string
}

// NewEngine returns an empty alias engine.
func NewEngine() *Engine {
	return &Engine{aliases: make(map[string]string)}
}

// Define records name -> replacement. It returns ErrInvalidName if name is
// illegal; redefining an existing alias (even identically) is not an error.
func (e *Engine) Define(name, replacement string) error {
	if !ValidName(name) {
		return ErrInvalidName{Name: name}
	}
	e.aliases[name] = replacement
	return nil
}

// Lookup returns the replacement for name, if any.
func (e *Engine) Lookup(name string) (string, bool) {
	v, ok := e.aliases[name]
	return v, ok
}

// Remove deletes name, reporting whether it was present.
func (e *Engine) Remove(name string) bool {
	if _, ok := e.aliases[name]; !ok {
		return false
	}
	delete(e.aliases, name)
	return true
}

// RemoveAll clears every alias.
func (e *Engine) RemoveAll() {
	e.aliases = make(map[string]string)
}

// Names returns every defined alias name, in map order (callers that need a
// stable listing should sort it).
func (e *Engine) Names() []string {
	out := make([]string, 0, len(e.aliases))
	for n := range e.aliases {
		out = append(out, n)
	}
	return out
}

// Translate expands every alias-eligible first word across the top-level
// segments of cmdline (segments being split by "|", "|&" and ";"), returning
// the translated line and true if at least one segment was translated, or
// ("", false) if nothing changed.
func (e *Engine) Translate(cmdline string) (string, bool) {
	res := tokenizer.Tokenize(cmdline)
	if len(res.Tokens) == 0 {
		return "", false
	}

	var out strings.Builder
	changed := false

	segStart := 0
	writeSegment := func(tokStart, tokEnd int, byteStart, byteEnd int) {
		seg := cmdline[byteStart:byteEnd]
		translated, ok := e.translateSegment(seg)
		if ok {
			changed = true
			out.WriteString(translated)
		} else {
			out.WriteString(seg)
		}
	}

	prevByteEnd := 0
	for _, d := range res.Delimiters {
		segByteEnd := d.Position
		writeSegment(segStart, d.TokenRangeEnd, prevByteEnd, segByteEnd)
		out.WriteString(cmdline[segByteEnd:delimEnd(d)])
		segStart = d.TokenRangeEnd
		prevByteEnd = delimEnd(d)
	}
	writeSegment(segStart, len(res.Tokens), prevByteEnd, len(cmdline))

	if !changed {
		return "", false
	}
	return out.String(), true
}

func delimEnd(d tokenizer.Delimiter) int {
	return d.Position + len(d.Kind.String())
}

// translateSegment implements the per-segment DFS described in the shell
// design: if the first token names a known, not-yet-visited alias, expand it
// recursively (sharing the visited set so cycles terminate), and then either
// splice a fresh translation of the remainder (if the replacement ends in
// whitespace and we started a brand new segment) or append the remainder
// unchanged.
func (e *Engine) translateSegment(segment string) (string, bool) {
	return e.translate(segment, map[string]bool{})
}

func (e *Engine) translate(segment string, visited map[string]bool) (string, bool) {
	trimmedLeft := strings.TrimLeft(segment, " \t")
	leading := segment[:len(segment)-len(trimmedLeft)]

	first, rest, ok := splitFirstWord(trimmedLeft)
	if !ok {
		return segment, false
	}

	replacement, known := e.aliases[first]
	if !known || visited[first] {
		return segment, false
	}

	startedEmpty := len(visited) == 0
	visited[first] = true

	expanded, _ := e.translate(replacement, visited)

	var result string
	if endsInSpace(expanded) && startedEmpty {
		// expanded already supplies the separating whitespace, so the
		// fresh translation starts at the next word, not at rest's
		// leading separator.
		tail, _ := e.translate(strings.TrimLeft(rest, " \t"), map[string]bool{})
		result = leading + expanded + tail
	} else {
		result = leading + expanded + rest
	}
	return result, true
}

func endsInSpace(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == ' ' || last == '\t'
}

// splitFirstWord splits s into its first whitespace-delimited word and the
// remainder (including the separating whitespace, unchanged). ok is false if
// s has no leading word (e.g. empty or all-whitespace).
func splitFirstWord(s string) (word, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] != ' ' && s[i] != '\t' {
		i++
	}
	if i == 0 {
		return "", s, false
	}
	return s[:i], s[i:], true
}

// ParseDefinition parses a textual "name=value" or bare "name" as accepted
// by the alias built-in. If "=" is present at a non-zero index with a
// non-empty right-hand side, it returns (name, &value); otherwise (name,
// nil).
func ParseDefinition(arg string) (name string, value *string) {
	idx := strings.IndexByte(arg, '=')
	if idx > 0 && idx+1 < len(arg) {
		v := arg[idx+1:]
		return arg[:idx], &v
	}
	if idx > 0 {
		// "name=" with an empty right-hand side: still just a name lookup.
		return arg[:idx], nil
	}
	return arg, nil
}

// QuoteValue renders value the way the alias built-in prints definitions:
// single-quoted, with embedded single quotes escaped as '\''. The one
// special case is a value that is exactly a single quote, which is emitted
// as \' rather than the empty-looking ''\'''.
func QuoteValue(value string) string {
	if value == "'" {
		return `\'`
	}
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(value); i++ {
		if value[i] == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteByte(value[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// FormatDefinition renders "alias name='value'" (or "alias -- name='value'"
// when name itself could be mistaken for a flag, i.e. starts with "-").
func FormatDefinition(name, value string) string {
	sep := ""
	if strings.HasPrefix(name, "-") {
		sep = "-- "
	}
	return fmt.Sprintf("alias %s%s=%s", sep, name, QuoteValue(value))
}
