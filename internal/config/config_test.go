package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/notify"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// createTestConfig returns a valid configuration for testing
func createTestConfig() *Config {
	c := DefaultConfig()
	c.Engine.Backend = engine.BackendFasterWhisper
	c.Engine.Tier = "balanced"
	c.Transcription.Language = "en"
	c.Notifications = NotificationsConfig{Enabled: true, Type: "log"}
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{name: "defaults", modify: func(c *Config) { *c = *DefaultConfig() }},
		{name: "unknown backend", modify: func(c *Config) { c.Engine.Backend = "vosk" }, wantErr: "engine.backend"},
		{name: "unknown tier", modify: func(c *Config) { c.Engine.Tier = "huge" }, wantErr: "engine.tier"},
		{name: "tier label", modify: func(c *Config) { c.Engine.Tier = "⚡ Fast" }},
		{name: "unknown device", modify: func(c *Config) { c.Engine.Device = "tpu" }, wantErr: "engine.device"},
		{name: "negative threads", modify: func(c *Config) { c.Engine.Threads = -1 }, wantErr: "engine.threads"},
		{name: "unknown language", modify: func(c *Config) { c.Transcription.Language = "xx" }, wantErr: "transcription.language"},
		{name: "auto language", modify: func(c *Config) { c.Transcription.Language = "auto" }},
		{name: "srt output", modify: func(c *Config) { c.Transcription.OutputFormat = "SRT" }},
		{name: "text output", modify: func(c *Config) { c.Transcription.OutputFormat = "text" }, wantErr: "output_format"},
		{name: "empty output root", modify: func(c *Config) { c.Output.Root = "" }, wantErr: "output.root"},
		{name: "empty root without save", modify: func(c *Config) {
			c.Output.Root = ""
			c.Output.Save = false
		}},
		{name: "empty temp root", modify: func(c *Config) { c.Output.TempRoot = "" }, wantErr: "output.temp_root"},
		{name: "zero sample rate", modify: func(c *Config) { c.Recording.SampleRate = 0 }, wantErr: "recording.sample_rate"},
		{name: "zero channels", modify: func(c *Config) { c.Recording.Channels = 0 }, wantErr: "recording.channels"},
		{name: "zero timeout", modify: func(c *Config) { c.Recording.Timeout = 0 }, wantErr: "recording.timeout"},
		{name: "port out of range", modify: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "notification type", modify: func(c *Config) { c.Notifications.Type = "email" }, wantErr: "notifications.type"},
		{name: "notification type ignored when disabled", modify: func(c *Config) {
			c.Notifications = NotificationsConfig{Enabled: false, Type: "email"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_OpenAIKey(t *testing.T) {
	config := createTestConfig()
	config.Engine.Backend = engine.BackendOpenAI

	t.Setenv("OPENAI_API_KEY", "")
	if err := config.Validate(); err == nil || !strings.Contains(err.Error(), "OpenAI API key required") {
		t.Errorf("Validate() without key error = %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() with env key error = %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "")
	config.Providers["openai"] = ProviderConfig{APIKey: "config-key"}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() with config key error = %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	expectedPath := filepath.Join(tempDir, "webwhisper", "config.toml")
	if path != expectedPath {
		t.Errorf("GetConfigPath() = %s, want %s", path, expectedPath)
	}
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Errorf("GetConfigPath() did not create config directory")
	}
}

func TestConfig_Load(t *testing.T) {
	t.Run("creates default config when none exists", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tempDir)

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("Loaded config is invalid: %v", err)
		}

		configPath := filepath.Join(tempDir, "webwhisper", "config.toml")
		data, err := os.ReadFile(configPath)
		if err != nil {
			t.Fatalf("Load() did not create config file: %v", err)
		}
		if !strings.HasPrefix(string(data), "# webwhisper configuration") {
			t.Errorf("config file missing header:\n%s", data)
		}
	})

	t.Run("loads existing config over defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		content := `[engine]
backend = "whisper-cpp"
tier = "fastest"
threads = 4

[transcription]
language = "de"
word_timestamps = true
output_format = "srt"

[recording]
timeout = "30s"

[providers.openai]
api_key = "sk-test"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadFile(configPath)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if config.Engine.Backend != engine.BackendWhisperCpp || config.Engine.Threads != 4 {
			t.Errorf("engine = %+v", config.Engine)
		}
		if !config.Transcription.WordTimestamps || config.Transcription.Language != "de" {
			t.Errorf("transcription = %+v", config.Transcription)
		}
		if config.Recording.Timeout != 30*time.Second {
			t.Errorf("recording.timeout = %v, want 30s", config.Recording.Timeout)
		}
		// untouched sections keep their defaults
		if config.Server.Port != 7860 || config.Output.Root != "outputs" || config.Recording.SampleRate != 16000 {
			t.Errorf("defaults lost: server=%+v output=%+v", config.Server, config.Output)
		}
		if config.Providers["openai"].APIKey != "sk-test" {
			t.Errorf("providers = %+v", config.Providers)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[recording]\nsample_rate = \"invalid_number\""), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(configPath); err == nil {
			t.Errorf("LoadFile() should have failed with invalid TOML")
		}
	})
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	original := createTestConfig()
	original.Engine.Python = "/opt/venv/bin/python"
	original.Recording.Timeout = 90 * time.Second
	original.Output.Clipboard = true
	original.Providers["openai"] = ProviderConfig{APIKey: "sk-round", BaseURL: "http://localhost:8000/v1"}

	if err := SaveFile(original, configPath); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if loaded.Engine != original.Engine {
		t.Errorf("engine = %+v, want %+v", loaded.Engine, original.Engine)
	}
	if loaded.Transcription != original.Transcription || loaded.Output != original.Output {
		t.Errorf("transcription/output mismatch: %+v %+v", loaded.Transcription, loaded.Output)
	}
	if loaded.Recording != original.Recording || loaded.Server != original.Server {
		t.Errorf("recording/server mismatch: %+v %+v", loaded.Recording, loaded.Server)
	}
	if loaded.Providers["openai"] != original.Providers["openai"] {
		t.Errorf("providers = %+v", loaded.Providers)
	}
	if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestConfig_ConversionMethods(t *testing.T) {
	config := createTestConfig()
	config.Engine.Python = "python3.11"
	config.Engine.Threads = 6
	config.Output.Subfolder = true
	config.Providers["openai"] = ProviderConfig{APIKey: "sk-conv", BaseURL: "http://local/v1"}
	t.Setenv("WEBWHISPER_PYTHON", "")

	t.Run("resolver", func(t *testing.T) {
		rc := config.ToResolverConfig()
		want := engine.Config{
			Backend:       engine.BackendFasterWhisper,
			Device:        "auto",
			Python:        "python3.11",
			Threads:       6,
			APIKey:        "sk-conv",
			OpenAIBaseURL: "http://local/v1",
		}
		if rc != want {
			t.Errorf("ToResolverConfig() = %+v, want %+v", rc, want)
		}
	})

	t.Run("python env override", func(t *testing.T) {
		t.Setenv("WEBWHISPER_PYTHON", "/env/python")
		if got := config.ToResolverConfig().Python; got != "/env/python" {
			t.Errorf("Python = %s, want /env/python", got)
		}
	})

	t.Run("session", func(t *testing.T) {
		sc := config.ToSessionConfig()
		if sc.OutputRoot != "outputs" || !sc.Subfolder || !sc.PreserveName || sc.TempRoot != "temp" {
			t.Errorf("ToSessionConfig() = %+v", sc)
		}
	})

	t.Run("default request", func(t *testing.T) {
		req := config.DefaultRequest()
		if req.Tier != engine.Balanced || req.Language != "en" || req.OutputFormat != transcript.KindJSON {
			t.Errorf("DefaultRequest() = %+v", req)
		}
		if req.Save == nil || !*req.Save {
			t.Error("DefaultRequest() should carry output.save")
		}
	})

	t.Run("recording", func(t *testing.T) {
		rc := config.ToRecordingConfig()
		if rc.SampleRate != 16000 || rc.Channels != 1 || rc.Timeout != 5*time.Minute {
			t.Errorf("ToRecordingConfig() = %+v", rc)
		}
	})

	t.Run("server", func(t *testing.T) {
		sc := config.ToServerConfig()
		if sc.Host != "127.0.0.1" || sc.Port != 7860 {
			t.Errorf("ToServerConfig() = %+v", sc)
		}
	})
}

func TestConfig_ToNotifier(t *testing.T) {
	tests := []struct {
		name   string
		config NotificationsConfig
		want   notify.Notifier
	}{
		{"disabled", NotificationsConfig{Enabled: false, Type: "desktop"}, notify.Nop{}},
		{"desktop", NotificationsConfig{Enabled: true, Type: "desktop"}, notify.Desktop{}},
		{"log", NotificationsConfig{Enabled: true, Type: "log"}, notify.Log{}},
		{"none", NotificationsConfig{Enabled: true, Type: "none"}, notify.Nop{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestConfig()
			c.Notifications = tt.config
			if got := c.ToNotifier(); got != tt.want {
				t.Errorf("ToNotifier() = %T, want %T", got, tt.want)
			}
		})
	}
}

func TestManager_Reload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveFile(createTestConfig(), configPath); err != nil {
		t.Fatal(err)
	}

	m, err := NewManagerForFile(configPath)
	if err != nil {
		t.Fatalf("NewManagerForFile() error = %v", err)
	}

	changed := make(chan *Config, 4)
	m.OnChange(func(c *Config) { changed <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	defer m.Stop()

	updated := createTestConfig()
	updated.Engine.Tier = "fastest"
	if err := SaveFile(updated, configPath); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Engine.Tier != "fastest" {
			t.Errorf("reloaded tier = %s, want fastest", c.Engine.Tier)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after config change")
	}
	if got := m.GetConfig().Engine.Tier; got != "fastest" {
		t.Errorf("GetConfig().Engine.Tier = %s, want fastest", got)
	}
}

func TestManager_GetConfigReturnsCopy(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	m, err := NewManagerForFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c := m.GetConfig()
	c.Engine.Tier = "fast"
	c.Providers["openai"] = ProviderConfig{APIKey: "leak"}

	again := m.GetConfig()
	if again.Engine.Tier == "fast" || again.Providers["openai"].APIKey == "leak" {
		t.Error("GetConfig() should return an independent copy")
	}
}
