package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/llm"
)

func newModelsCommand(cmdCtx *commandContext) *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of an Ollama server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.loadConfig()
			if err != nil {
				return err
			}
			catalog := llm.NewCatalog(cfg.Ollama.Port, cfg.Ollama.ModelsTimeoutDuration())
			models, err := catalog.ListModels(cmd.Context(), host)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModels(models))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Ollama host or URL")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}

func renderModels(models []string) string {
	if len(models) == 0 {
		return "No models installed."
	}
	rows := make([][]string, len(models))
	for i, name := range models {
		rows[i] = []string{strconv.Itoa(i + 1), name}
	}
	return renderTable([]string{"#", "Model"}, rows, []columnAlignment{alignRight, alignLeft})
}
