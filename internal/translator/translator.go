package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/llm"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"golang.org/x/text/language"
)

// Translator translates one batch of lines with a single chat call.
type Translator struct {
	client ChatClient
	model  string
	source language.Tag
	target language.Tag
}

// New creates a Translator that asks model to translate from source into target.
// An undetermined source is described generically in the prompt.
func New(client ChatClient, model string, source, target language.Tag) *Translator {
	return &Translator{
		client: client,
		model:  model,
		source: source,
		target: target,
	}
}

// Model returns the chat model name.
func (t *Translator) Model() string {
	return t.model
}

// TranslateBatch returns exactly len(texts) translations. Failures never escape:
// a timed out call yields PlaceholderTimeout for every line, any other failure
// PlaceholderFailed, and lines missing from the reply get a per-line placeholder.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string) (ret []string) {
	expected := len(texts)
	if expected == 0 {
		return []string{}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Batch translation panicked: %v", r)
			ret = Repeat(PlaceholderFailed, expected)
		}
	}()

	prompt := BuildPrompt(texts, t.source, t.target)
	raw, err := t.client.Chat(ctx, t.model, prompt)
	if err != nil {
		if llm.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Error("Batch translation of %d lines timed out: %v", expected, err)
			return Repeat(PlaceholderTimeout, expected)
		}
		log.Error("Batch translation of %d lines failed: %v", expected, err)
		return Repeat(PlaceholderFailed, expected)
	}

	lines, missing := ParseNumbered(raw, expected)
	if len(missing) > 0 {
		log.Warn("Expected %d translations, reply was missing lines %s", expected, joinInts(missing))
	}
	return lines
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
