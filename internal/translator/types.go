package translator

import "context"

// ChatClient sends one prompt to a chat model and returns the reply text.
type ChatClient interface {
	Chat(ctx context.Context, model string, prompt string) (string, error)
}

// BatchTranslator translates one batch of lines. Implementations return exactly
// len(texts) strings and degrade every failure to placeholder text.
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string) []string
}

var _ BatchTranslator = (*Translator)(nil)

// Placeholders substituted for text that could not be obtained.
const (
	PlaceholderTimeout     = "[translation timed out]"
	PlaceholderFailed      = "[batch translation failed]"
	placeholderMissingLine = "[missing line %d]"
)
