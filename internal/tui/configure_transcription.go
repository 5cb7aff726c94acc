package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/leonardotrapani/webwhisper/internal/engine"
)

var backendDescriptions = map[string]string{
	engine.BackendAuto:          "Auto (MLX on Apple Silicon, faster-whisper elsewhere)",
	engine.BackendMLX:           "MLX Whisper (Apple Silicon GPU)",
	engine.BackendFasterWhisper: "faster-whisper (CUDA or CPU)",
	engine.BackendWhisperCpp:    "whisper.cpp (local whisper-cli)",
	engine.BackendOpenAI:        "OpenAI Whisper API (cloud, needs API key)",
}

func backendOptions() []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range engine.Backends() {
		label := name
		if desc, ok := backendDescriptions[name]; ok {
			label = desc
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func tierOptions() []huh.Option[string] {
	var options []huh.Option[string]
	for _, t := range engine.Tiers() {
		options = append(options, huh.NewOption(t.Label(), t.String()))
	}
	return options
}

// editEngine handles backend, tier and device selection
func editEngine(cfg *config.Config) error {
	backend := cfg.Engine.Backend
	if backend == "" {
		backend = engine.BackendAuto
	}
	tier := engine.ParseTier(cfg.Engine.Tier).String()
	device := cfg.Engine.Device
	if device == "" {
		device = "auto"
	}
	threads := strconv.Itoa(cfg.Engine.Threads)
	python := cfg.Engine.Python

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Backend").
				Description("Inference engine used for transcription").
				Options(backendOptions()...).
				Value(&backend),
			huh.NewSelect[string]().
				Title("Model Tier").
				Description("Trade accuracy for speed").
				Options(tierOptions()...).
				Value(&tier),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Device").
				Description("Preferred accelerator. Loading falls back to CPU when the GPU fails.").
				Options(
					huh.NewOption("Auto-detect (recommended)", "auto"),
					huh.NewOption("CPU", "cpu"),
					huh.NewOption("CUDA", "cuda"),
					huh.NewOption("Metal", "metal"),
				).
				Value(&device),
			huh.NewInput().
				Title("CPU Threads").
				Description("0 lets the backend decide").
				Placeholder("0").
				Value(&threads).
				Validate(validateNonNegative),
			huh.NewInput().
				Title("Python Interpreter").
				Description("Used by the MLX and faster-whisper workers. Empty searches PATH.").
				Placeholder("python3").
				Value(&python),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Engine.Backend = backend
	cfg.Engine.Tier = tier
	cfg.Engine.Device = device
	cfg.Engine.Threads, _ = strconv.Atoi(threads)
	cfg.Engine.Python = python

	if backend == engine.BackendOpenAI && resolveProviderKey(cfg, "openai") == "" {
		fmt.Println(StyleWarning.Render("The OpenAI backend needs an API key: set one under Providers."))
	}
	return nil
}

// editTranscription handles the per-request defaults
func editTranscription(cfg *config.Config) error {
	lang := cfg.Transcription.Language
	if lang == "" {
		lang = "auto"
	}
	wordTimestamps := cfg.Transcription.WordTimestamps
	format := cfg.Transcription.OutputFormat

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Description("Spoken language hint. Auto-detect lets the model decide.").
				Options(getLanguageOptions(lang)...).
				Filtering(true).
				Value(&lang),
			huh.NewConfirm().
				Title("Word timestamps").
				Description("Include per-word timings in JSON output").
				Value(&wordTimestamps),
			huh.NewSelect[string]().
				Title("Output Format").
				Options(
					huh.NewOption("JSON segments", "json"),
					huh.NewOption("SRT subtitles", "srt"),
				).
				Value(&format),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Language = lang
	cfg.Transcription.WordTimestamps = wordTimestamps
	cfg.Transcription.OutputFormat = format
	return nil
}

func validateNonNegative(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
