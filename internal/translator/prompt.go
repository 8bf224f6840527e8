package translator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const batchPromptTemplate = `You are a professional subtitle translator. Translate the numbered %s subtitle lines below into %s, keeping the meaning coherent across the whole batch.

Follow these rules strictly:
1. Translate every line provided.
2. Keep the original number in front of each translated line.
3. Output only the numbered list of translations, without any comments, introductions or explanations.

Lines to translate:

%s
`

// BuildPrompt embeds texts as a 1-based numbered list into the batch instruction.
// Multi-line texts are folded into one line so numbering stays unambiguous.
func BuildPrompt(texts []string, source, target language.Tag) string {
	return fmt.Sprintf(batchPromptTemplate, LanguageName(source), LanguageName(target), NumberedList(texts))
}

// NumberedList renders texts as "1. text" rows.
func NumberedList(texts []string) string {
	rows := make([]string, 0, len(texts))
	for i, text := range texts {
		rows = append(rows, fmt.Sprintf("%d. %s", i+1, strings.Join(strings.Fields(text), " ")))
	}
	return strings.Join(rows, "\n")
}

// LanguageName returns the English display name of tag.
func LanguageName(tag language.Tag) string {
	if tag == language.Und {
		return "source-language"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
