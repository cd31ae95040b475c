// Package placeholder shields inline markup (code spans, HTML tags, URLs)
// from a chat model by replacing it with numbered markers ([PH0], [PH1], …)
// before the request and putting it back in the reply.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reInlineCode  = regexp.MustCompile("`[^`]+`")
	reHTMLTag     = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
	reURL         = regexp.MustCompile(`https?://[^\s<>"'\x60]*[^\s<>"'\x60.,;:!?)]`)
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Set collects the markup replaced in one request. Markers are numbered
// across every line protected with the same Set, so a batch of lines can
// be restored after the reply has been split again.
type Set struct {
	originals []string
}

// Protect replaces code spans, then HTML tags, then URLs in text.
func (s *Set) Protect(text string) string {
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(s.originals))
		s.originals = append(s.originals, match)
		return id
	}
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)
	text = reURL.ReplaceAllStringFunc(text, replace)
	return text
}

// Len returns the number of markers handed out.
func (s *Set) Len() int {
	return len(s.originals)
}

// Restore puts the original markup back. Unknown markers are left as they
// are.
func (s *Set) Restore(text string) string {
	if len(s.originals) == 0 {
		return text
	}
	// A tag may have captured a marker from the code span phase.
	for pass := 0; pass < 2 && rePlaceholder.MatchString(text); pass++ {
		text = rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
			sub := rePlaceholder.FindStringSubmatch(match)
			idx, err := strconv.Atoi(sub[1])
			if err != nil || idx >= len(s.originals) {
				return match
			}
			return s.originals[idx]
		})
	}
	return text
}

// Missing returns the markers that do not appear in text.
func (s *Set) Missing(text string) []int {
	var missing []int
	for i := range s.originals {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Hint is appended to the system prompt when a request carries markers.
func Hint() string {
	return "Preserve exatamente os marcadores [PHn]: não os traduza, mova ou remova."
}
