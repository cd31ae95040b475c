// Package batcher groups input lines into translation batches. Blank lines
// always close the open batch and never become batch members, and every
// member keeps the index of the line it came from so results can be put
// back in place afterwards.
package batcher

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTokens is used by TokenCapacity when MaxTokens is not positive.
const DefaultMaxTokens = 2048

// Batch is an ordered group of non-blank lines sent to a translator in one
// call. Indices are strictly increasing and Texts[i] belongs to Indices[i].
type Batch struct {
	Seq     int
	Indices []int
	Texts   []string
	Cost    int
}

// Len returns the number of lines in the batch.
func (b *Batch) Len() int { return len(b.Indices) }

// Capacity decides when a batch is full.
type Capacity interface {
	// Cost returns what adding text costs against the capacity.
	Cost(text string) int
	// WouldExceed reports whether appending text to b goes over the limit.
	WouldExceed(b *Batch, text string) bool
}

// CountCapacity limits a batch to a fixed number of lines.
type CountCapacity struct {
	Lines int
}

func (c CountCapacity) Cost(string) int { return 1 }

func (c CountCapacity) WouldExceed(b *Batch, _ string) bool {
	limit := c.Lines
	if limit <= 0 {
		limit = 1
	}
	return b.Len() >= limit
}

// TokenCapacity limits a batch by an estimated token budget.
type TokenCapacity struct {
	MaxTokens int
}

func (c TokenCapacity) Cost(text string) int { return EstimateTokens(text) }

func (c TokenCapacity) WouldExceed(b *Batch, text string) bool {
	limit := c.MaxTokens
	if limit <= 0 {
		limit = DefaultMaxTokens
	}
	return b.Cost+c.Cost(text) > limit
}

// EstimateTokens approximates the token count of text as one token per four
// characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// IsBlank reports whether a line holds only whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Make splits lines into batches using c. A non-blank line that alone costs
// more than the capacity allows is still emitted, as a batch of its own.
func Make(lines []string, c Capacity) []Batch {
	return MakeSkip(lines, c, nil)
}

// MakeSkip is Make for lines where some indices already have a result.
// Skipped lines are left out of every batch but, unlike blank lines, do not
// close the open one. A nil skip skips nothing.
func MakeSkip(lines []string, c Capacity, skip func(int) bool) []Batch {
	var (
		batches []Batch
		open    Batch
	)

	flush := func() {
		if open.Len() == 0 {
			return
		}
		open.Seq = len(batches)
		batches = append(batches, open)
		open = Batch{}
	}

	for i, line := range lines {
		if IsBlank(line) {
			flush()
			continue
		}
		if skip != nil && skip(i) {
			continue
		}

		text := strings.TrimSpace(line)
		if open.Len() > 0 && c.WouldExceed(&open, text) {
			flush()
		}
		open.Indices = append(open.Indices, i)
		open.Texts = append(open.Texts, text)
		open.Cost += c.Cost(text)
	}
	flush()

	return batches
}

// Covered returns the sorted union of all indices in batches.
func Covered(batches []Batch) []int {
	var out []int
	for _, b := range batches {
		out = append(out, b.Indices...)
	}
	sort.Ints(out)
	return out
}

// NonBlank returns the sorted indices of all non-blank lines.
func NonBlank(lines []string) []int {
	var out []int
	for i, line := range lines {
		if !IsBlank(line) {
			out = append(out, i)
		}
	}
	return out
}
