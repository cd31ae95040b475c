package translator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// languageName returns the Portuguese name of a language code, or the code
// itself when it cannot be parsed.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Portuguese.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

func lineSystemPrompt(source, target string) string {
	return fmt.Sprintf(
		"Você é um tradutor profissional. Traduza APENAS o texto fornecido do %s para o %s. "+
			"Retorne SOMENTE a tradução, sem adicionar nenhum texto extra, explicação ou comentário.",
		languageName(source), languageName(target))
}

func batchSystemPrompt(source, target string) string {
	return fmt.Sprintf(
		"Você é um tradutor profissional. Traduza o texto fornecido do %s para o %s, "+
			"mantendo EXATAMENTE a mesma estrutura de linhas. Cada linha do original deve corresponder "+
			"a UMA linha na tradução. Não adicione ou remova linhas. Não adicione explicações.",
		languageName(source), languageName(target))
}

func batchUserPrompt(lines []string) string {
	return "Traduza este texto linha por linha, mantendo a mesma quantidade de linhas:\n\n" +
		strings.Join(lines, "\n")
}
