// Package validator checks that translated lines are in the expected target language.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/tradutor/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator whose detector also knows the given languages.
func New(codes ...string) *Validator {
	return &Validator{det: detector.New(codes...)}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from targetLang the returned error names both codes.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	// "pt-BR" style targets compare on the base language.
	base, _, _ := strings.Cut(targetLang, "-")
	if !strings.EqualFold(detected, base) {
		return false, fmt.Errorf("expected %s but detected %s", targetLang, detected)
	}

	return true, nil
}

// Mismatch is a translated line that failed validation.
type Mismatch struct {
	Index  int
	Text   string
	Reason string
}

// CheckLines validates every line selected by include, which may be nil to
// validate all non-blank lines.
func (v *Validator) CheckLines(lines []string, targetLang string, include func(i int) bool) []Mismatch {
	var out []Mismatch
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if include != nil && !include(i) {
			continue
		}
		if ok, err := v.IsValid(line, targetLang); !ok {
			out = append(out, Mismatch{Index: i, Text: line, Reason: err.Error()})
		}
	}
	return out
}
