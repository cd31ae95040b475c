// Package reassembler rebuilds the output document from per-index
// translation results. The output always has exactly as many lines as the
// input, whatever subset of indices was translated.
package reassembler

import "strings"

// ResultMap holds translated text keyed by the zero-based input line index.
type ResultMap map[int]string

// Status describes how an output line was produced.
type Status int

const (
	// Missing marks a non-blank input line with no result.
	Missing Status = iota
	// Blank marks a blank input line, emitted empty.
	Blank
	// Translated marks a line returned by the translation backend.
	Translated
	// Cached marks a line served from the translation memory.
	Cached
	// Fallback marks a line where the source text was kept after a failure.
	Fallback
)

var statusNames = map[Status]string{
	Missing:    "missing",
	Blank:      "blank",
	Translated: "translated",
	Cached:     "cached",
	Fallback:   "fallback",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Status appear as a string in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Line is one output line together with the way it was produced.
type Line struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Status Status `json:"status"`
}

// Assemble returns n lines where line i is results[i], or "" when the map
// has no entry for i. Entries outside [0, n) are ignored.
func Assemble(results ResultMap, n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	for i := range out {
		out[i] = results[i]
	}
	return out
}

// AssembleStatus is Assemble with a per-line status attached. Indices
// absent from both maps are reported as Blank when blank[i] is true and
// Missing otherwise.
func AssembleStatus(results ResultMap, statuses map[int]Status, blank func(i int) bool, n int) []Line {
	texts := Assemble(results, n)
	out := make([]Line, n)
	for i, text := range texts {
		st, ok := statuses[i]
		if !ok {
			_, has := results[i]
			switch {
			case has:
				st = Translated
			case blank != nil && blank(i):
				st = Blank
			default:
				st = Missing
			}
		}
		out[i] = Line{Index: i, Text: text, Status: st}
	}
	return out
}

// Texts extracts the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Render joins lines into a document where every line, including the last,
// ends with a newline.
func Render(lines []string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Count tallies lines by status.
func Count(lines []Line) map[Status]int {
	out := make(map[Status]int)
	for _, l := range lines {
		out[l.Status]++
	}
	return out
}
