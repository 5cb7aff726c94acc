package config

import (
	"time"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend: engine.BackendAuto,
			Tier:    engine.HighAccuracy.String(),
			Device:  "auto",
		},
		Transcription: TranscriptionConfig{
			Language:       language.AutoCode,
			WordTimestamps: false,
			OutputFormat:   string(transcript.KindJSON),
		},
		Output: OutputConfig{
			Save:         true,
			Root:         "outputs",
			Subfolder:    false,
			PreserveName: true,
			SaveAudio:    false,
			TempRoot:     "temp",
			Clipboard:    false,
		},
		Recording: RecordingConfig{
			SampleRate: 16000,
			Channels:   1,
			Device:     "",
			Timeout:    5 * time.Minute,
		},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       7860,
			Autolaunch: false,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Type:    "log",
		},
		Providers: make(map[string]ProviderConfig),
	}
}
