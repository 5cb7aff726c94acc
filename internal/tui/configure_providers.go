package tui

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webwhisper/internal/config"
)

// providerEnvVars names the environment variable checked when no key is
// stored in the config file.
var providerEnvVars = map[string]string{
	"openai": "OPENAI_API_KEY",
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func resolveProviderKey(cfg *config.Config, name string) string {
	if pc, ok := cfg.Providers[name]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	if env, ok := providerEnvVars[name]; ok {
		return os.Getenv(env)
	}
	return ""
}

// editProviders configures the OpenAI-compatible endpoint used by the
// openai backend.
func editProviders(cfg *config.Config) error {
	pc := cfg.Providers["openai"]
	apiKey := pc.APIKey
	baseURL := pc.BaseURL

	keyDesc := "Leave empty to use OPENAI_API_KEY from the environment"
	if apiKey != "" {
		keyDesc = "Currently: " + maskAPIKey(apiKey) + ". " + keyDesc
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Base URL").
				Description("Optional OpenAI-compatible endpoint, e.g. a local whisper server").
				Placeholder("https://api.openai.com/v1").
				Value(&baseURL),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	if apiKey == "" && baseURL == "" {
		delete(cfg.Providers, "openai")
		return nil
	}
	cfg.Providers["openai"] = config.ProviderConfig{APIKey: apiKey, BaseURL: baseURL}
	return nil
}
