package validator

import (
	"testing"
)

func TestIsValid_EmptyTargetLang(t *testing.T) {
	v := New()

	valid, err := v.IsValid("Some translated text", "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true for empty targetLang")
	}
}

func TestIsValid_EmptyTranslation(t *testing.T) {
	v := New()

	valid, err := v.IsValid("", "en")
	if err == nil {
		t.Error("expected error for empty translation")
	}
	if valid {
		t.Error("expected valid=false for empty translation")
	}
}

func TestIsValid_WhitespaceOnlyTranslation(t *testing.T) {
	v := New()

	valid, err := v.IsValid("   ", "en")
	if err == nil {
		t.Error("expected error for whitespace-only translation")
	}
	if valid {
		t.Error("expected valid=false for whitespace-only translation")
	}
}

func TestIsValid_ShortText(t *testing.T) {
	v := New()

	shortText := "Hi" // Less than minValidationLength (20 chars)
	valid, err := v.IsValid(shortText, "en")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true for short text (below threshold)")
	}
}

func TestIsValid_EnglishToEnglish(t *testing.T) {
	v := New()

	text := "This is a longer piece of text that should be detected as English."
	valid, err := v.IsValid(text, "en")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true when detecting English as English")
	}
}

func TestIsValid_MismatchedLanguage(t *testing.T) {
	v := New()

	englishText := "This is a longer piece of text that should be detected as English."
	valid, err := v.IsValid(englishText, "pt")
	if err == nil {
		t.Error("expected error for mismatched language")
	}
	if valid {
		t.Error("expected valid=false when detecting English but expecting Portuguese")
	}
}

func TestIsValid_PortugueseText(t *testing.T) {
	v := New()

	text := "O gato sentou-se no tapete e ficou a olhar pela janela durante horas."
	for _, target := range []string{"pt", "pt-BR"} {
		valid, err := v.IsValid(text, target)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", target, err)
		}
		if !valid {
			t.Errorf("%s: expected valid=true when detecting Portuguese as Portuguese", target)
		}
	}
}

func TestIsValid_CaseInsensitiveTargetLang(t *testing.T) {
	v := New()

	text := "This is a longer piece of text that should be detected as English."
	valid, err := v.IsValid(text, "EN") // uppercase
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !valid {
		t.Error("expected valid=true for case-insensitive targetLang")
	}
}

func TestCheckLines(t *testing.T) {
	v := New()

	lines := []string{
		"O gato sentou-se no tapete e ficou a olhar pela janela.",
		"",
		"The cat sat on the mat and looked outside for a long time.",
		"Sim.",
	}

	mismatches := v.CheckLines(lines, "pt", nil)
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d: %+v", len(mismatches), mismatches)
	}
	if mismatches[0].Index != 2 || mismatches[0].Reason == "" {
		t.Errorf("unexpected mismatch: %+v", mismatches[0])
	}

	skipAll := v.CheckLines(lines, "pt", func(i int) bool { return i != 2 })
	if len(skipAll) != 0 {
		t.Errorf("expected excluded line to be skipped, got %+v", skipAll)
	}
}
