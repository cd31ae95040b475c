// Package detector identifies the language of text lines. It is used to
// warn when the input does not look like the configured source language.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// DefaultLanguages is the candidate set when no codes are given. Keeping the
// set small makes the detector faster to build and more accurate on short
// lines.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.Portuguese,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over DefaultLanguages plus the languages named by
// the ISO 639-1 codes. Unknown codes are ignored.
func New(codes ...string) *Detector {
	langs := append([]lingua.Language(nil), DefaultLanguages...)
	seen := make(map[lingua.Language]bool, len(langs))
	for _, l := range langs {
		seen[l] = true
	}
	for _, code := range codes {
		if l, ok := Language(code); ok && !seen[l] {
			langs = append(langs, l)
			seen[l] = true
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}
}

// Language maps an ISO 639-1 code such as "pt" to a lingua language.
func Language(code string) (lingua.Language, bool) {
	iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
	l := lingua.GetLanguageFromIsoCode639_1(iso)
	return l, l != lingua.Unknown
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Dominant detects the language of up to sampleSize non-blank lines that
// are at least minRunes long and returns the most frequent ISO code with
// its share of the detected lines. ok is false when nothing was detected.
func (d *Detector) Dominant(lines []string, sampleSize, minRunes int) (code string, share float64, ok bool) {
	counts := make(map[string]int)
	detected := 0

	for _, line := range lines {
		if sampleSize > 0 && detected >= sampleSize {
			break
		}
		text := strings.TrimSpace(line)
		if len([]rune(text)) < minRunes {
			continue
		}
		iso, found := d.DetectISO(text)
		if !found {
			continue
		}
		counts[iso]++
		detected++
	}

	if detected == 0 {
		return "", 0, false
	}

	best := 0
	for iso, n := range counts {
		if n > best || (n == best && iso < code) {
			best, code = n, iso
		}
	}
	return code, float64(best) / float64(detected), true
}
