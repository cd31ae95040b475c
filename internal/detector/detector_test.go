package detector

import (
	"testing"

	lingua "github.com/pemistahl/lingua-go"
)

func TestDetector_Detect(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantLang string
		wantOK   bool
	}{
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
		{
			name:   "whitespace only",
			text:   "   \t",
			wantOK: false,
		},
		{
			name:     "english text",
			text:     "Hello, this is a test in English and it should be detected.",
			wantLang: "English",
			wantOK:   true,
		},
		{
			name:     "portuguese text",
			text:     "Olá, este é um teste em português para verificar a detecção.",
			wantLang: "Portuguese",
			wantOK:   true,
		},
		{
			name:     "german text",
			text:     "Hallo, das ist ein Test auf Deutsch.",
			wantLang: "German",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := d.Detect(tt.text)
			if ok != tt.wantOK {
				t.Errorf("Detect(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && lang.String() != tt.wantLang {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, lang, tt.wantLang)
			}
		})
	}
}

func TestDetector_DetectISO(t *testing.T) {
	d := New()

	code, ok := d.DetectISO("The weather is lovely today and the children are playing outside.")
	if !ok || code != "en" {
		t.Errorf("expected en, got %q (ok=%v)", code, ok)
	}

	if _, ok := d.DetectISO(""); ok {
		t.Error("expected no detection for empty text")
	}
}

func TestLanguage(t *testing.T) {
	if l, ok := Language("pt"); !ok || l != lingua.Portuguese {
		t.Errorf("expected Portuguese, got %v (ok=%v)", l, ok)
	}
	if l, ok := Language(" EN "); !ok || l != lingua.English {
		t.Errorf("expected English, got %v (ok=%v)", l, ok)
	}
	if _, ok := Language("xx"); ok {
		t.Error("expected unknown code to be rejected")
	}
}

func TestNew_ExtraLanguages(t *testing.T) {
	d := New("uk", "xx")

	lang, ok := d.Detect("Це є тестовий текст українською мовою для перевірки.")
	if !ok || lang != lingua.Ukrainian {
		t.Errorf("expected Ukrainian, got %v (ok=%v)", lang, ok)
	}
}

func TestDetector_Dominant(t *testing.T) {
	d := New()

	lines := []string{
		"The old house stood at the end of the quiet street.",
		"",
		"Nobody had lived there for many years, or so they said.",
		"ok",
		"Every evening the lights in the windows flickered on.",
		"Ninguém sabia quem acendia as luzes da casa velha.",
	}

	code, share, ok := d.Dominant(lines, 0, 10)
	if !ok {
		t.Fatal("expected a dominant language")
	}
	if code != "en" {
		t.Errorf("expected en, got %q", code)
	}
	if share != 0.75 {
		t.Errorf("expected share 0.75, got %v", share)
	}

	if _, _, ok := d.Dominant([]string{"", "hi"}, 0, 10); ok {
		t.Error("expected no result when every line is too short")
	}

	code, _, ok = d.Dominant(lines, 1, 10)
	if !ok || code != "en" {
		t.Errorf("expected sample of one English line, got %q", code)
	}
}
