package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
	"github.com/MimeLyc/subtitle-studio/internal/translator"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"golang.org/x/text/language"
)

// BilingualSuffix is inserted before the extension of translated outputs.
const BilingualSuffix = ".bilingual"

// JobConfig describes one subtitle translation.
type JobConfig struct {
	InputPath string
	// OutputDir defaults to the input directory.
	OutputDir string
	// DownloadPrefix is joined with the output file name into the result download URL.
	DownloadPrefix string

	Model string
	// Source set to language.Und is detected from the subtitle content.
	Source     language.Tag
	Target     language.Tag
	BatchSize  int
	MaxWorkers int
}

// OutputName is "<input base>.bilingual.srt".
func (c JobConfig) OutputName() string {
	return file.BaseName(c.InputPath) + BilingualSuffix + ".srt"
}

func (c JobConfig) OutputPath() string {
	dir := c.OutputDir
	if dir == "" {
		dir = filepath.Dir(c.InputPath)
	}
	return filepath.Join(dir, c.OutputName())
}

func (c JobConfig) validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return NewError(KindConfig, "input path is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return NewError(KindConfig, "model is required")
	}
	if c.Target == language.Und {
		return NewError(KindConfig, "target language is required")
	}
	return nil
}

// TranslationJob reads one SRT file, translates it in batches and writes the
// bilingual result.
type TranslationJob struct {
	config JobConfig
	client translator.ChatClient
}

func NewTranslationJob(config JobConfig, client translator.ChatClient) *TranslationJob {
	return &TranslationJob{config: config, client: client}
}

func (j *TranslationJob) Config() JobConfig {
	return j.config
}

// Run executes the job. It matches tasks.Runner.
func (j *TranslationJob) Run(ctx context.Context, report tasks.Reporter) (*tasks.Result, error) {
	cfg := j.config
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sub, err := subtitle.ReadFile(cfg.InputPath)
	if err != nil {
		var formatErr *subtitle.FormatError
		if errors.As(err, &formatErr) {
			return nil, WrapError(err, KindFormat, "invalid subtitle file")
		}
		return nil, WrapError(err, KindFileRead, "cannot read subtitle file")
	}

	source := cfg.Source
	if source == language.Und {
		source = sub.Language
		log.Info("Detected source language %s for %s", source, filepath.Base(cfg.InputPath))
	}

	scheduler := &Scheduler{
		Translator: translator.New(j.client, cfg.Model, source, cfg.Target),
		BatchSize:  cfg.BatchSize,
		MaxWorkers: cfg.MaxWorkers,
	}

	var progress func(int)
	if report != nil {
		progress = report.Progress
	}
	merged, err := scheduler.Run(ctx, sub.Lines, progress)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, WrapError(err, KindCancelled, "translation cancelled")
		}
		return nil, err
	}

	outputPath := cfg.OutputPath()
	if err := subtitle.WriteFile(outputPath, merged); err != nil {
		return nil, WrapError(err, KindFileWrite, "cannot write translated subtitle")
	}
	if report != nil {
		report.Progress(100)
	}

	name := filepath.Base(outputPath)
	log.Info("Wrote %d bilingual lines to %s", len(merged), outputPath)
	return &tasks.Result{
		Filename:    name,
		DownloadURL: downloadURL(cfg.DownloadPrefix, name),
	}, nil
}

func downloadURL(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.TrimRight(prefix, "/") + "/" + name
}
