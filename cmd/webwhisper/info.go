package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/webwhisper/internal/deps"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/models/whisper"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/tui"
	"github.com/spf13/cobra"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show platform, backend selection and installed dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rc := cfg.ToResolverConfig()
			resolver := engine.NewResolver(rc)

			fmt.Println(tui.Logo())
			fmt.Println()

			var b strings.Builder
			row(&b, "Platform", resolver.Platform().String())
			row(&b, "System", platform.Describe(ctx, resolver.Platform()))
			row(&b, "Backend", resolver.BackendName())
			tier := engine.ParseTier(cfg.Engine.Tier)
			row(&b, "Model", fmt.Sprintf("%s (%s)", engine.ModelID(resolver.BackendName(), tier), tier.Label()))
			row(&b, "Server", "http://"+cfg.ToServerConfig().Addr())
			fmt.Println(tui.StyleBox.Render(strings.TrimRight(b.String(), "\n")))
			fmt.Println()

			fmt.Println(tui.StyleHeader.Render("Dependencies"))
			for _, line := range dependencyLines(ctx, rc.Python) {
				fmt.Println(line)
			}

			if installed := whisper.ListInstalled(); len(installed) > 0 {
				fmt.Println()
				fmt.Println(tui.StyleHeader.Render("whisper.cpp models"))
				for _, id := range installed {
					fmt.Printf("  %s\n", id)
				}
			}
			return nil
		},
	}
}

func row(b *strings.Builder, label, value string) {
	key := lipgloss.NewStyle().Width(10).Inherit(tui.StyleLabel).Render(label)
	fmt.Fprintf(b, "%s %s\n", key, value)
}

func dependencyLines(ctx context.Context, configuredPython string) []string {
	python := deps.FindPython(configuredPython)
	pyLabel := python
	if pyLabel == "" {
		pyLabel = "python"
	}

	checks := []struct {
		name   string
		status deps.Status
		hint   string
	}{
		{pyLabel, deps.Status{Installed: python != "", Path: python}, "install Python 3.9+"},
		{"faster-whisper", deps.CheckPythonModule(ctx, python, "faster_whisper"), "pip install faster-whisper"},
		{"mlx-whisper", deps.CheckPythonModule(ctx, python, "mlx_whisper"), "pip install mlx-whisper (Apple Silicon only)"},
		{"whisper-cli", deps.CheckWhisperCli(ctx), "build whisper.cpp for the whisper-cpp backend"},
		{"ffmpeg", deps.CheckFFmpeg(ctx), "needed for microphone capture and non-WAV input to whisper-cli"},
		{"nvidia-smi", deps.CheckNvidiaGPU(ctx), "no NVIDIA GPU visible, CPU will be used"},
	}

	var lines []string
	for _, c := range checks {
		lines = append(lines, statusLine(c.name, c.status, c.hint))
	}

	if tool, err := recording.CheckCaptureAvailable(ctx); err == nil {
		lines = append(lines, statusLine("capture", deps.Status{Installed: true, Version: tool}, ""))
	} else {
		lines = append(lines, statusLine("capture", deps.Status{}, err.Error()))
	}
	return lines
}

func statusLine(name string, st deps.Status, hint string) string {
	if st.Installed {
		detail := st.Version
		if detail == "" {
			detail = st.Path
		}
		return fmt.Sprintf("  %s %-15s %s", tui.StyleSuccess.Render("✓"), name, tui.StyleMuted.Render(detail))
	}
	return fmt.Sprintf("  %s %-15s %s", tui.StyleError.Render("✗"), name, tui.StyleSubtle.Render(hint))
}
