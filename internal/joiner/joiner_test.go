package joiner_test

import (
	"testing"

	"github.com/valpere/tradutor/internal/joiner"
)

// --- ShouldJoin tests ---

func TestShouldJoin(t *testing.T) {
	tests := []struct {
		name    string
		current string
		next    string
		want    bool
	}{
		{"empty current", "", "and more", false},
		{"empty next", "Some text", "", false},
		{"period terminates", "This is a sentence.", "Another one starts here.", false},
		{"question terminates", "Is it?", "yes it is", false},
		{"colon terminates", "The list follows:", "apples and pears", false},
		{"straight quote terminates", `He said "go"`, "and left", false},
		{"curly quote terminates", "He said “go”", "and left", false},
		{"bracket terminates", "See the note (below)", "and then", false},
		{"lowercase continues", "The cat sat on the mat", "and looked outside.", true},
		{"lowercase accented continues", "Ele viu a casa", "é grande", true},
		{"connective continues", "The long story went on for many pages", "But nobody read it.", true},
		{"connective with punctuation is not a connective", "The story went on for pages", "But, nobody read it.", false},
		{"short title does not join", "Chapter One", "The Beginning", false},
		{"short line with comma joins", "Hello,", "World", true},
		{"long line with comma joins", "In the morning the whole town gathered by the river,", "Everyone waited.", true},
		{"long line without comma does not join", "In the morning the whole town gathered by the river", "Everyone waited.", false},
		{"exactly forty runes without comma", "abcdefghij abcdefghij abcdefghij abcdefg", "Next Line", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joiner.ShouldJoin(tt.current, tt.next); got != tt.want {
				t.Errorf("ShouldJoin(%q, %q) = %v, want %v", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func TestShouldJoin_TerminatorBeatsContinuation(t *testing.T) {
	// A lowercase next line must not override a strong terminator.
	if joiner.ShouldJoin("It ended.", "and then it began again") {
		t.Error("strong terminator should short-circuit the lowercase rule")
	}
}

// --- Join tests ---

func TestJoin_BrokenSentence(t *testing.T) {
	res := joiner.Join([]string{"The cat sat on the mat", "and looked outside."})

	if len(res.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(res.Lines), res.Lines)
	}
	if res.Lines[0] != "The cat sat on the mat and looked outside." {
		t.Errorf("unexpected joined line: %q", res.Lines[0])
	}
	if res.Joins != 1 {
		t.Errorf("expected 1 join, got %d", res.Joins)
	}
	if res.Original != 2 {
		t.Errorf("expected 2 original lines, got %d", res.Original)
	}
}

func TestJoin_NotJoinedAfterPeriod(t *testing.T) {
	in := []string{"This is a sentence.", "Another one starts here."}
	res := joiner.Join(in)

	if len(res.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(res.Lines))
	}
	for i := range in {
		if res.Lines[i] != in[i] {
			t.Errorf("line %d: expected %q, got %q", i, in[i], res.Lines[i])
		}
	}
}

func TestJoin_ChainOfFragments(t *testing.T) {
	res := joiner.Join([]string{"The quick brown fox", "jumps over", "the lazy dog."})

	if len(res.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(res.Lines))
	}
	if res.Lines[0] != "The quick brown fox jumps over the lazy dog." {
		t.Errorf("unexpected joined line: %q", res.Lines[0])
	}
	if res.Joins != 2 {
		t.Errorf("expected 2 joins, got %d", res.Joins)
	}
}

func TestJoin_BlankLinesAreBarriers(t *testing.T) {
	in := []string{"Hello,", "", "world", "   "}
	res := joiner.Join(in)

	if len(res.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(res.Lines), res.Lines)
	}
	if res.Lines[1] != "" {
		t.Errorf("blank line changed: %q", res.Lines[1])
	}
	if res.Lines[3] != "   " {
		t.Errorf("whitespace-only line should be kept verbatim, got %q", res.Lines[3])
	}
	if res.Joins != 0 {
		t.Errorf("expected 0 joins, got %d", res.Joins)
	}
}

func TestJoin_KeepsLeadingIndentAndTrimsAbsorbed(t *testing.T) {
	res := joiner.Join([]string{"  indented line", "   continues here  "})

	if len(res.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(res.Lines))
	}
	if res.Lines[0] != "  indented line continues here" {
		t.Errorf("unexpected joined line: %q", res.Lines[0])
	}
}

func TestJoin_StripsLineTerminators(t *testing.T) {
	res := joiner.Join([]string{"Windows line\r\n", "continues\r\n"})

	if len(res.Lines) != 1 || res.Lines[0] != "Windows line continues" {
		t.Errorf("unexpected result: %q", res.Lines)
	}
}

func TestJoin_Empty(t *testing.T) {
	res := joiner.Join(nil)
	if len(res.Lines) != 0 || res.Joins != 0 || res.Original != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
