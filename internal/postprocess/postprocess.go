// Package postprocess removes common LLM artifacts from translation output
// and splits batch replies back into lines.
//
// It is applied to the raw text returned by the chat-completion backend
// before the result is stored in the result map.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in four phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Code fence unwrapping
//  3. Instruction echo removal (English and Portuguese)
//  4. Quote wrapping removal (single-line replies only)
func Clean(text string) string {
	return CleanReply("", text)
}

// CleanReply is Clean for a reply to source. Phases 3 and 4 are skipped when
// source itself opens with a label or is wrapped in quotes, since the same
// text in the reply is then a translation and not an artifact.
func CleanReply(source, text string) string {
	source = strings.TrimSpace(source)
	text = removeThinkingBlocks(text)
	text = removeCodeFence(text)
	if !leadingLabelRe.MatchString(source) {
		text = removeInstructionEchoes(text)
	}
	if strings.Contains(source, "\n") || !quoteWrapped(source) {
		text = removeQuoteWrapping(text)
	}
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// Go's RE2 has no backreferences, so each tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened tag whose closing tag never came.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: code fences ---

var codeFenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*[ \t]*\n(.*?)\n?```$")

func removeCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// --- Phase 3: instruction echoes ---

// echoPatterns are anchored at the start and require a colon, so a sentence
// that merely mentions a translation is left alone.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]?\s*here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:translation|translated text)\s*:`),
	regexp.MustCompile(`(?i)^(?:claro|certo|com certeza)[,.!]?\s*(?:aqui está|segue)(?: a)? tradução\s*:`),
	regexp.MustCompile(`(?i)^(?:aqui está|segue)(?: a)? tradução\s*:`),
	regexp.MustCompile(`(?i)^(?:a )?tradução\s*:`),
}

// leadingLabelRe matches a short run of words closed by a colon at the start
// of a line: "Translation:", "Note:", "Aqui está a tradução:".
var leadingLabelRe = regexp.MustCompile(`^\p{L}[\p{L}'’ ]{0,39}:`)

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 4: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes from a
// single-line reply. Multi-line replies are left alone: their first and last
// quote usually belong to different lines of dialogue.
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	if strings.Contains(text, "\n") || !quoteWrapped(text) {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[1 : len(runes)-1]))
}

func quoteWrapped(text string) bool {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return false
	}
	first, last := runes[0], runes[n-1]
	return (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’')
}

// --- Line handling ---

// SplitLines breaks a batch reply into trimmed, non-empty lines. The input
// of a batch never contains blank lines, so blank lines in the reply are
// padding added by the model.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FlattenLine collapses a reply that spans several lines into one line so
// it cannot shift the lines that follow it in the output.
func FlattenLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
