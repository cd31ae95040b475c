// Package joiner repairs sentences that were broken across several physical
// lines (hard-wrapped text, PDF extractions) before they are translated.
//
// The heuristic is deliberately simple: it looks only at the end of the
// current line and the start of the next one.
package joiner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// shortLineLimit is the rune length under which a line without a trailing
// comma is treated as a title or a name rather than a sentence fragment.
const shortLineLimit = 40

var strongTerminators = []rune{'.', '!', '?', ':', '"', '”', ')', ']', '}'}

var connectives = map[string]struct{}{
	"and":   {},
	"or":    {},
	"but":   {},
	"which": {},
	"that":  {},
	"who":   {},
	"where": {},
	"when":  {},
	"how":   {},
}

// ShouldJoin reports whether next continues the sentence started in current.
// Both arguments are expected to be trimmed. Rules are evaluated in order:
//  1. empty input never joins
//  2. a strong terminator at the end of current never joins
//  3. next starting with a lowercase letter joins
//  4. next starting with a connective word joins
//  5. short current lines without a trailing comma do not join
//  6. a trailing comma joins
func ShouldJoin(current, next string) bool {
	if current == "" || next == "" {
		return false
	}

	last, _ := utf8.DecodeLastRuneInString(current)
	for _, t := range strongTerminators {
		if last == t {
			return false
		}
	}

	first, _ := utf8.DecodeRuneInString(next)
	if unicode.IsLower(first) {
		return true
	}

	if fields := strings.Fields(next); len(fields) > 0 {
		if _, ok := connectives[strings.ToLower(fields[0])]; ok {
			return true
		}
	}

	endsWithComma := last == ','
	if utf8.RuneCountInString(current) < shortLineLimit && !endsWithComma {
		return false
	}

	return endsWithComma
}

// Result holds the joined lines together with counters for reporting.
type Result struct {
	Lines    []string
	Original int
	Joins    int
}

// Join merges consecutive non-blank lines for which ShouldJoin holds.
// Blank lines are copied as they are and are never merged across. A merged
// line keeps the leading whitespace of its first physical line; absorbed
// lines are trimmed and appended after a single space.
func Join(lines []string) Result {
	res := Result{
		Lines:    make([]string, 0, len(lines)),
		Original: len(lines),
	}

	for i := 0; i < len(lines); i++ {
		current := strings.TrimRight(lines[i], "\r\n")
		if isBlank(current) {
			res.Lines = append(res.Lines, current)
			continue
		}

		for i+1 < len(lines) {
			next := strings.TrimRight(lines[i+1], "\r\n")
			if isBlank(next) {
				break
			}
			if !ShouldJoin(strings.TrimSpace(current), strings.TrimSpace(next)) {
				break
			}
			current = current + " " + strings.TrimSpace(next)
			i++
			res.Joins++
		}

		res.Lines = append(res.Lines, current)
	}

	return res
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
