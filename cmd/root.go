package main

import (
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

// commandContext carries the flags shared by all subcommands.
type commandContext struct {
	configPath string
	cfg        *config.Config
}

// loadConfig reads the configuration once and initializes the global logger.
func (c *commandContext) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	var opts []config.Option
	if c.configPath != "" {
		opts = append(opts, config.WithFile(c.configPath))
	}
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}
	log.InitLogger(log.ParseLevel(cfg.Log.Level))
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "subtitle-studio",
		Short:         "Transcribe and translate subtitles with local models",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "TOML configuration file")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newModelsCommand(ctx))
	return rootCmd
}
