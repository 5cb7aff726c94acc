package config

import "time"

type Config struct {
	Engine        EngineConfig              `toml:"engine"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Output        OutputConfig              `toml:"output"`
	Recording     RecordingConfig           `toml:"recording"`
	Server        ServerConfig              `toml:"server"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// EngineConfig selects the inference backend and model tier.
type EngineConfig struct {
	Backend string `toml:"backend"` // "auto", "mlx", "faster-whisper", "whisper-cpp", "openai"
	Tier    string `toml:"tier"`
	Device  string `toml:"device"` // "auto", "cpu", "cuda", "metal"
	Python  string `toml:"python"`
	Threads int    `toml:"threads"` // CPU threads for local backends (0 = backend default)
}

type TranscriptionConfig struct {
	Language       string `toml:"language"` // "auto" or ISO-639-1
	WordTimestamps bool   `toml:"word_timestamps"`
	OutputFormat   string `toml:"output_format"` // "json" or "srt"
}

type OutputConfig struct {
	Save         bool   `toml:"save"`
	Root         string `toml:"root"`
	Subfolder    bool   `toml:"subfolder"`
	PreserveName bool   `toml:"preserve_name"`
	SaveAudio    bool   `toml:"save_audio"`
	TempRoot     string `toml:"temp_root"`
	Clipboard    bool   `toml:"copy_to_clipboard"` // toggled dictations land on the clipboard
}

type RecordingConfig struct {
	SampleRate int           `toml:"sample_rate"`
	Channels   int           `toml:"channels"`
	Device     string        `toml:"device"`
	Timeout    time.Duration `toml:"timeout"`
}

type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Autolaunch bool   `toml:"autolaunch"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

// ProviderConfig holds credentials for a hosted backend
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}
