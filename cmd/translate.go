package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/llm"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
)

type translateOptions struct {
	host       string
	port       int
	model      string
	source     string
	target     string
	batchSize  int
	maxWorkers int
	outputDir  string
}

func newTranslateCommand(cmdCtx *commandContext) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate one subtitle file into a bilingual SRT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.loadConfig()
			if err != nil {
				return err
			}
			jobCfg, err := opts.jobConfig(cfg, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			port := opts.port
			if port <= 0 {
				port = cfg.Ollama.Port
			}
			client := llm.NewClient(llm.BaseURL(opts.host, port), llm.WithChatTimeout(cfg.Ollama.ChatTimeoutDuration()))
			job := service.NewTranslationJob(jobCfg, client)

			bar := newBarReporter(cmd.ErrOrStderr(), jobCfg.OutputName())
			_, err = job.Run(ctx, bar)
			bar.finish()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jobCfg.OutputPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "Ollama host or URL")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Ollama port (default from configuration)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Ollama model")
	cmd.Flags().StringVar(&opts.source, "source", "", "source language tag or auto (default from configuration)")
	cmd.Flags().StringVar(&opts.target, "target", "", "target language tag (default from configuration)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "lines per request (default from configuration)")
	cmd.Flags().IntVar(&opts.maxWorkers, "workers", 0, "concurrent requests (default from configuration)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "output directory (default next to the input)")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// jobConfig fills unset flags from cfg.
func (o *translateOptions) jobConfig(cfg *config.Config, input string) (service.JobConfig, error) {
	source := o.source
	if source == "" {
		source = cfg.Translate.SourceLanguage
	}
	target := o.target
	if target == "" {
		target = cfg.Translate.TargetLanguage
	}
	sourceTag, err := config.ParseLanguage(source, true)
	if err != nil {
		return service.JobConfig{}, fmt.Errorf("invalid source language %q: %w", source, err)
	}
	targetTag, err := config.ParseLanguage(target, false)
	if err != nil {
		return service.JobConfig{}, fmt.Errorf("invalid target language %q: %w", target, err)
	}

	batchSize := o.batchSize
	if batchSize <= 0 {
		batchSize = cfg.Translate.BatchSize
	}
	maxWorkers := o.maxWorkers
	if maxWorkers <= 0 {
		maxWorkers = cfg.Translate.MaxWorkers
	}

	return service.JobConfig{
		InputPath:  input,
		OutputDir:  o.outputDir,
		Model:      o.model,
		Source:     sourceTag,
		Target:     targetTag,
		BatchSize:  batchSize,
		MaxWorkers: maxWorkers,
	}, nil
}

// barReporter renders task progress as a terminal progress bar.
type barReporter struct {
	bar *progressbar.ProgressBar
}

var _ tasks.Reporter = (*barReporter)(nil)

func newBarReporter(w io.Writer, description string) *barReporter {
	return &barReporter{
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		),
	}
}

func (r *barReporter) Progress(percent int) {
	_ = r.bar.Set(percent)
}

func (r *barReporter) finish() {
	if r.bar.IsFinished() {
		return
	}
	_ = r.bar.Exit()
}
