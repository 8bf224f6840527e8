package transcribe

import "fmt"

const DefaultModel = "base"

// Request describes one media file to transcribe.
type Request struct {
	Path string
	// Language is a whisper language code; empty lets whisper detect it.
	Language string
	Model    string
	// BaseName names the produced files; defaults to the input name without extension.
	BaseName string
}

type Result struct {
	Success     bool   `json:"success"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// Segment is one entry of whisper's JSON output. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperOutput struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// CommandError reports a failed external command together with its stderr.
type CommandError struct {
	Tool   string
	Stderr string
	Cause  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Tool, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}
