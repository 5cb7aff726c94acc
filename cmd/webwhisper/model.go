package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/models/whisper"
	"github.com/spf13/cobra"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage whisper.cpp models",
		Long: `Manage the ggml models used by the whisper-cpp backend. The MLX and
faster-whisper backends download their models on first use.`,
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	var multilingual bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List whisper.cpp models and their install state",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := whisper.ListModels()
			if multilingual {
				models = whisper.ListMultilingualModels()
			}
			tierOf := tierModels()
			for _, m := range models {
				printModelLine(m, tierOf[m.ID])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&multilingual, "multilingual", false, "hide English-only models")

	return cmd
}

// tierModels maps whisper-cpp model IDs to the tiers that use them.
func tierModels() map[string][]string {
	out := make(map[string][]string)
	for _, t := range engine.Tiers() {
		id := engine.ModelID(engine.BackendWhisperCpp, t)
		out[id] = append(out[id], t.String())
	}
	return out
}

func printModelLine(m whisper.ModelInfo, tiers []string) {
	prefix := "  [ ]"
	if whisper.IsInstalled(m.ID) {
		prefix = "  [x]"
	}

	parts := []string{m.Size}
	if !m.Multilingual {
		parts = append(parts, "english-only")
	}
	if len(tiers) > 0 {
		parts = append(parts, "tier "+strings.Join(tiers, "/"))
	}

	line := fmt.Sprintf("%s %s", prefix, m.ID)
	if m.Name != "" {
		line += fmt.Sprintf(" - %s", m.Name)
	}
	line += fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
	fmt.Println(line)
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelDownload(cmd.Context(), args[0])
		},
	}
}

func runModelDownload(ctx context.Context, modelName string) error {
	model := whisper.GetModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	if whisper.IsInstalled(modelName) {
		path := whisper.GetModelPath(modelName)
		fmt.Printf("model '%s' is already installed at %s\n", modelName, path)
		return nil
	}

	fmt.Printf("downloading %s (%s)...\n", modelName, model.Size)

	var lastPercent int
	err := whisper.Download(ctx, modelName, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Printf("%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	path := whisper.GetModelPath(modelName)
	fmt.Printf("\ndownload complete: %s\n", path)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := whisper.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to remove model: %w", err)
			}
			fmt.Printf("model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}
