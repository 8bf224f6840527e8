package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

// Whisper turns audio or video into SRT subtitles with the ffmpeg and whisper
// command line tools.
type Whisper struct {
	FFmpegCmd  string
	WhisperCmd string
	// OutputDir receives extracted audio and the produced subtitle.
	OutputDir      string
	DownloadPrefix string
}

func (w Whisper) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("media path is required")
	}
	baseName := req.BaseName
	if baseName == "" {
		baseName = file.BaseName(req.Path)
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	audioPath := req.Path
	if file.HasExt(req.Path, "mp4") {
		audioPath = filepath.Join(w.OutputDir, baseName+".mp3")
		log.Info("Extracting audio from %s", filepath.Base(req.Path))
		if _, err := w.run(ctx, "FFMPEG", w.cmd(w.FFmpegCmd, "ffmpeg"), ffmpegArgs(req.Path, audioPath)...); err != nil {
			return nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create whisper work dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	log.Info("Transcribing %s with whisper model %s", filepath.Base(audioPath), model)
	start := time.Now()
	if _, err := w.run(ctx, "Whisper", w.cmd(w.WhisperCmd, "whisper"), whisperArgs(audioPath, model, req.Language, tmpDir)...); err != nil {
		return nil, err
	}

	segments, err := readSegments(file.ReplaceExt(filepath.Join(tmpDir, filepath.Base(audioPath)), ".json"))
	if err != nil {
		return nil, err
	}

	filename := baseName + ".srt"
	if err := subtitle.WriteFile(filepath.Join(w.OutputDir, filename), SegmentsToLines(segments)); err != nil {
		return nil, fmt.Errorf("write subtitle: %w", err)
	}
	log.Info("Transcribed %d segments into %s in %s", len(segments), filename, time.Since(start).Round(time.Second))

	return &Result{
		Success:     true,
		Filename:    filename,
		DownloadURL: strings.TrimRight(w.DownloadPrefix, "/") + "/" + filename,
	}, nil
}

func (Whisper) cmd(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (Whisper) run(ctx context.Context, tool, name string, args ...string) ([]byte, error) {
	cmdPath, err := exec.LookPath(name)
	if err != nil {
		return nil, &CommandError{Tool: tool, Stderr: err.Error(), Cause: err}
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Error("%s failed: %v", tool, err)
		return nil, &CommandError{Tool: tool, Stderr: strings.TrimSpace(stderr.String()), Cause: err}
	}
	return stdout.Bytes(), nil
}

func ffmpegArgs(input, output string) []string {
	return []string{
		"-i", input,
		"-y",
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		output,
	}
}

func whisperArgs(audio, model, lang, outputDir string) []string {
	args := []string{audio, "--model", model}
	if lang != "" {
		args = append(args, "--language", lang)
	}
	return append(args,
		"--fp16", "False",
		"--output_format", "json",
		"--output_dir", outputDir,
	)
}

func readSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode whisper output: %w", err)
	}
	return out.Segments, nil
}

// SegmentsToLines numbers segments from 1 and rounds their times to milliseconds.
func SegmentsToLines(segments []Segment) []subtitle.Line {
	lines := make([]subtitle.Line, 0, len(segments))
	for i, seg := range segments {
		start := seconds(seg.Start)
		end := max(seconds(seg.End), start)
		lines = append(lines, subtitle.Line{
			Index:     i + 1,
			StartTime: start,
			EndTime:   end,
			Text:      strings.TrimSpace(seg.Text),
		})
	}
	return lines
}

func seconds(v float64) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(math.Round(v*1000)) * time.Millisecond
}
