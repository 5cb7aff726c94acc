package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionEngine        ConfigSection = "engine"
	SectionTranscription ConfigSection = "transcription"
	SectionOutput        ConfigSection = "output"
	SectionRecording     ConfigSection = "recording"
	SectionServer        ConfigSection = "server"
	SectionProviders     ConfigSection = "providers"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration menu on a copy of existingConfig. The copy
// is returned only when the user confirms the summary.
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	if existingConfig == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := cloneConfig(existingConfig)

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				showError("Invalid configuration", err)
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg, Cancelled: false}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		default:
			edit, ok := sectionEditors[section]
			if !ok {
				continue
			}
			// esc inside a section abandons that section only
			if err := edit(cfg); err != nil {
				continue
			}
		}
	}
}

var sectionEditors = map[ConfigSection]func(*config.Config) error{
	SectionEngine:        editEngine,
	SectionTranscription: editTranscription,
	SectionOutput:        editOutput,
	SectionRecording:     editRecording,
	SectionServer:        editServer,
	SectionProviders:     editProviders,
	SectionNotifications: editNotifications,
}

func sectionOptions(cfg *config.Config) []huh.Option[ConfigSection] {
	return []huh.Option[ConfigSection]{
		huh.NewOption(formatEngineLabel(cfg), SectionEngine),
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatOutputLabel(cfg), SectionOutput),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(sectionOptions(cfg)...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func cloneConfig(c *config.Config) *config.Config {
	out := *c
	out.Providers = make(map[string]config.ProviderConfig, len(c.Providers))
	for k, v := range c.Providers {
		out.Providers[k] = v
	}
	return &out
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

// showError blocks on a note until the user returns to the menu.
func showError(title string, err error) {
	huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(StyleError.Render(title)).
				Description(err.Error()).
				Next(true).
				NextLabel("Back to menu"),
		),
	).WithTheme(getTheme()).Run()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
