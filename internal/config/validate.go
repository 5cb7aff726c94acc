package config

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

func (c *Config) Validate() error {
	if c.Engine.Backend != "" && !engine.IsValidBackend(c.Engine.Backend) {
		return fmt.Errorf("invalid engine.backend: %s (must be one of %s)", c.Engine.Backend, strings.Join(engine.Backends(), ", "))
	}
	if c.Engine.Tier != "" && !isValidTier(c.Engine.Tier) {
		return fmt.Errorf("invalid engine.tier: %s (must be high-accuracy, fast, balanced, or fastest)", c.Engine.Tier)
	}
	validDevices := map[string]bool{"": true, "auto": true, "cpu": true, "cuda": true, "metal": true}
	if !validDevices[c.Engine.Device] {
		return fmt.Errorf("invalid engine.device: %s (must be auto, cpu, cuda, or metal)", c.Engine.Device)
	}
	if c.Engine.Threads < 0 {
		return fmt.Errorf("invalid engine.threads: %d", c.Engine.Threads)
	}

	if c.Engine.Backend == engine.BackendOpenAI && c.resolveAPIKey("openai") == "" {
		return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
	}

	if c.Transcription.Language != "" && !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use \"auto\" for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}
	switch transcript.Kind(strings.ToLower(c.Transcription.OutputFormat)) {
	case transcript.KindJSON, transcript.KindSRT:
	default:
		return fmt.Errorf("invalid transcription.output_format: %s (must be json or srt)", c.Transcription.OutputFormat)
	}

	if c.Output.Save && c.Output.Root == "" {
		return fmt.Errorf("invalid output.root: empty")
	}
	if c.Output.TempRoot == "" {
		return fmt.Errorf("invalid output.temp_root: empty")
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if c.Notifications.Enabled && !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

// ParseTier falls back to high accuracy silently, so unknown names are
// caught here instead.
func isValidTier(s string) bool {
	for _, t := range engine.Tiers() {
		if strings.EqualFold(s, t.String()) || s == t.Label() {
			return true
		}
	}
	return false
}
