package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/models/whisper"
)

// formatEngineLabel formats the engine menu option
func formatEngineLabel(cfg *config.Config) string {
	backend := cfg.Engine.Backend
	if backend == "" {
		backend = engine.BackendAuto
	}
	return fmt.Sprintf("Engine (%s, %s)", backend, engine.ParseTier(cfg.Engine.Tier).Label())
}

// formatTranscriptionLabel formats the transcription menu option showing
// the current language
func formatTranscriptionLabel(cfg *config.Config) string {
	lang := language.FromCode(cfg.Transcription.Language)
	return fmt.Sprintf("Transcription (%s, %s)", lang.Name, cfg.Transcription.OutputFormat)
}

func formatOutputLabel(cfg *config.Config) string {
	if !cfg.Output.Save {
		return "Output (not saved)"
	}
	return fmt.Sprintf("Output (%s)", cfg.Output.Root)
}

func formatRecordingLabel(cfg *config.Config) string {
	return fmt.Sprintf("Recording (rate=%d, timeout=%s)", cfg.Recording.SampleRate, cfg.Recording.Timeout)
}

func formatServerLabel(cfg *config.Config) string {
	return fmt.Sprintf("Server (%s:%d)", cfg.Server.Host, cfg.Server.Port)
}

// formatProvidersLabel formats the providers menu option
func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "Providers"
	}
	return fmt.Sprintf("Providers (%s)", strings.Join(configured, ", "))
}

// formatNotificationsLabel formats the notifications menu option
func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func getConfiguredProviders(cfg *config.Config) []string {
	providers := make([]string, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			providers = append(providers, name)
		}
	}
	sort.Strings(providers)
	return providers
}

// modelStatus describes the model a whisper-cpp tier maps to and whether
// its weights are downloaded. Other backends fetch models themselves.
func modelStatus(cfg *config.Config) string {
	tier := engine.ParseTier(cfg.Engine.Tier)
	if cfg.Engine.Backend != engine.BackendWhisperCpp {
		return ""
	}
	id := engine.ModelID(engine.BackendWhisperCpp, tier)
	if whisper.IsInstalled(id) {
		return fmt.Sprintf("%s - installed", id)
	}
	info := whisper.GetModel(id)
	if info == nil {
		return id
	}
	return fmt.Sprintf("%s - not installed (%s, run: webwhisper model download %s)", id, info.Size, id)
}

func summaryLines(cfg *config.Config) []string {
	var lines []string
	add := func(label, value string) {
		lines = append(lines, fmt.Sprintf("  %s %s", StyleLabel.Render(label), value))
	}

	backend := cfg.Engine.Backend
	if backend == "" {
		backend = engine.BackendAuto
	}
	add("Engine:", fmt.Sprintf("%s, %s, device %s", backend, engine.ParseTier(cfg.Engine.Tier).Label(), cfg.Engine.Device))
	if status := modelStatus(cfg); status != "" {
		add("Model:", status)
	}
	add("Language:", language.FromCode(cfg.Transcription.Language).Name)
	add("Format:", cfg.Transcription.OutputFormat)
	if cfg.Transcription.WordTimestamps {
		add("Word timestamps:", "on")
	}
	if cfg.Output.Save {
		add("Output:", cfg.Output.Root)
	} else {
		add("Output:", "not saved")
	}
	if cfg.Output.Clipboard {
		add("Clipboard:", "toggled recordings")
	}
	add("Server:", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if providers := getConfiguredProviders(cfg); len(providers) > 0 {
		add("Providers:", strings.Join(providers, ", "))
	}
	if cfg.Notifications.Enabled {
		add("Notifications:", cfg.Notifications.Type)
	} else {
		add("Notifications:", "disabled")
	}
	return lines
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println()
	for _, line := range summaryLines(cfg) {
		fmt.Println(line)
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
