package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webwhisper/internal/config"
)

// editOutput handles where and how transcripts are saved
func editOutput(cfg *config.Config) error {
	save := cfg.Output.Save
	root := cfg.Output.Root
	subfolder := cfg.Output.Subfolder
	preserve := cfg.Output.PreserveName
	saveAudio := cfg.Output.SaveAudio
	tempRoot := cfg.Output.TempRoot
	copyText := cfg.Output.Clipboard

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save transcripts").
				Description("Write .txt plus the JSON or SRT file after each transcription").
				Value(&save),
			huh.NewInput().
				Title("Output Folder").
				Placeholder("outputs").
				Value(&root).
				Validate(func(s string) error {
					if save && s == "" {
						return fmt.Errorf("required when saving")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Timestamped subfolder").
				Description("Save each transcription under transcription_YYYYMMDD_HHMMSS").
				Value(&subfolder),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep original file name").
				Description("meeting.mp3 produces meeting.txt instead of transcription.txt").
				Value(&preserve),
			huh.NewConfirm().
				Title("Copy audio").
				Description("Store a copy of the input audio next to the transcript").
				Value(&saveAudio),
			huh.NewInput().
				Title("Temp Folder").
				Description("Microphone recordings are written here during transcription").
				Placeholder("temp").
				Value(&tempRoot).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Copy to clipboard").
				Description("Put the text of toggled recordings on the clipboard").
				Value(&copyText),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Output = config.OutputConfig{
		Save:         save,
		Root:         root,
		Subfolder:    subfolder,
		PreserveName: preserve,
		SaveAudio:    saveAudio,
		TempRoot:     tempRoot,
		Clipboard:    copyText,
	}
	return nil
}

// editRecording handles the recording settings
func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	channels := strconv.Itoa(cfg.Recording.Channels)
	device := cfg.Recording.Device
	timeout := cfg.Recording.Timeout.String()

	channelOptions := []huh.Option[string]{
		huh.NewOption("1 (Mono) - Recommended", "1"),
		huh.NewOption("2 (Stereo)", "2"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("Audio sample rate. 16000 is optimal for speech recognition.").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(validatePositive),
			huh.NewSelect[string]().
				Title("Channels").
				Description("Number of audio channels").
				Options(channelOptions...).
				Value(&channels),
			huh.NewInput().
				Title("Device").
				Description("Capture device name. Empty uses the system default.").
				Value(&device),
			huh.NewInput().
				Title("Max Duration").
				Description("Upper bound on a single recording, e.g. 5m").
				Placeholder("5m").
				Value(&timeout).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return fmt.Errorf("invalid duration")
					}
					if d <= 0 {
						return fmt.Errorf("must be positive")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Recording.Channels, _ = strconv.Atoi(channels)
	cfg.Recording.Device = device
	cfg.Recording.Timeout, _ = time.ParseDuration(timeout)
	return nil
}

// editServer handles the web server settings
func editServer(cfg *config.Config) error {
	host := cfg.Server.Host
	port := strconv.Itoa(cfg.Server.Port)
	autolaunch := cfg.Server.Autolaunch

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host").
				Description("127.0.0.1 keeps the server local. 0.0.0.0 exposes it to the network.").
				Placeholder("127.0.0.1").
				Value(&host),
			huh.NewInput().
				Title("Port").
				Placeholder("7860").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("must be between 1 and 65535")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Open browser on start").
				Value(&autolaunch),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Host = host
	cfg.Server.Port, _ = strconv.Atoi(port)
	cfg.Server.Autolaunch = autolaunch
	return nil
}
