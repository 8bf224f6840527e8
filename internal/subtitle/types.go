package subtitle

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Line is one timed subtitle entry.
type Line struct {
	Index     int           `json:"index"`      // sequence number taken verbatim from the source
	StartTime time.Duration `json:"start_time"` // offset from stream start
	EndTime   time.Duration `json:"end_time"`
	Text      string        `json:"text"` // one or more content lines joined by "\n"
}

// WithTranslation returns a copy of l whose content carries the original text
// followed by translated on its own line. Index and timing are unchanged.
func (l Line) WithTranslation(translated string) Line {
	l.Text = joinContent(l.Text, translated)
	return l
}

// File is a parsed subtitle file.
type File struct {
	Path     string
	Lines    []Line
	Language language.Tag
	Format   string // e.g. SRT
}

// FormatError reports malformed subtitle input. Line is 1-based.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("subtitle format error at line %d: %s", e.Line, e.Reason)
}
