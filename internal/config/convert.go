package config

import (
	"os"
	"strings"

	"github.com/leonardotrapani/webwhisper/internal/deps"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/notify"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/server"
	"github.com/leonardotrapani/webwhisper/internal/session"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// envVarForProvider maps a provider section to its API key variable.
var envVarForProvider = map[string]string{
	"openai": "OPENAI_API_KEY",
}

func (c *Config) ToResolverConfig() engine.Config {
	python := c.Engine.Python
	if env := os.Getenv(deps.EnvPython); env != "" {
		python = env
	}
	device := c.Engine.Device
	if device == "" {
		device = "auto"
	}
	backend := c.Engine.Backend
	if backend == "" {
		backend = engine.BackendAuto
	}
	return engine.Config{
		Backend:       backend,
		Device:        device,
		Python:        python,
		Threads:       c.Engine.Threads,
		APIKey:        c.resolveAPIKey("openai"),
		OpenAIBaseURL: c.Providers["openai"].BaseURL,
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Save:         c.Output.Save,
		OutputRoot:   c.Output.Root,
		Subfolder:    c.Output.Subfolder,
		PreserveName: c.Output.PreserveName,
		SaveAudio:    c.Output.SaveAudio,
		TempRoot:     c.Output.TempRoot,
	}
}

// DefaultRequest returns a request carrying the configured transcription
// defaults; callers fill in the audio input.
func (c *Config) DefaultRequest() session.Request {
	kind, err := transcript.ParseKind(c.Transcription.OutputFormat)
	if err != nil {
		kind = transcript.KindJSON
	}
	save := c.Output.Save
	return session.Request{
		Language:       c.Transcription.Language,
		WordTimestamps: c.Transcription.WordTimestamps,
		OutputFormat:   kind,
		Tier:           engine.ParseTier(c.Engine.Tier),
		Save:           &save,
	}
}

func (c *Config) ToRecordingConfig() recording.Config {
	config := recording.DefaultConfig()
	config.SampleRate = c.Recording.SampleRate
	config.Channels = c.Recording.Channels
	config.Device = c.Recording.Device
	config.Timeout = c.Recording.Timeout
	return config
}

func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:       c.Server.Host,
		Port:       c.Server.Port,
		Autolaunch: c.Server.Autolaunch,
	}
}

// ToNotifier returns the notifier selected by [notifications].
func (c *Config) ToNotifier() notify.Notifier {
	if !c.Notifications.Enabled {
		return notify.Nop{}
	}
	switch strings.ToLower(c.Notifications.Type) {
	case "desktop":
		return notify.Desktop{}
	case "log":
		return notify.Log{}
	default:
		return notify.Nop{}
	}
}

// resolveAPIKey returns the API key for a provider from config, then the
// environment.
func (c *Config) resolveAPIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	if envVar := envVarForProvider[providerName]; envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}
