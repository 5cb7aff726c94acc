package testutil

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// TestConfig returns a valid configuration for testing. Outputs and temp
// files go under dir.
func TestConfig(dir string) *config.Config {
	c := config.DefaultConfig()
	c.Engine.Backend = engine.BackendFasterWhisper
	c.Transcription.Language = "en"
	c.Output.Root = filepath.Join(dir, "outputs")
	c.Output.TempRoot = filepath.Join(dir, "temp")
	c.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "test-api-key"},
	}
	c.Notifications = config.NotificationsConfig{Enabled: true, Type: "log"}
	return c
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// CreateTempAudioFile writes a short silent WAV and returns its path.
func CreateTempAudioFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := TestBuffer(1600).SaveWAV(path); err != nil {
		t.Fatalf("Failed to create temp audio file: %v", err)
	}
	return path
}

// TestBuffer returns a mono 16 kHz buffer of n samples.
func TestBuffer(n int) *recording.Buffer {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i % 64) * 64)
	}
	return &recording.Buffer{SampleRate: 16000, Channels: 1, Samples: samples}
}

// SampleRaw returns a mapping-shaped raw result with two segments, the second
// carrying word timings.
func SampleRaw() transcript.MappingResult {
	return transcript.MappingResult{
		"text":                 " Hello world. Ça va? ",
		"language":             "en",
		"language_probability": 0.97,
		"segments": []any{
			map[string]any{"start": 0.0, "end": 1.5, "text": " Hello world."},
			map[string]any{
				"start": 1.5, "end": 3.25, "text": " Ça va? ",
				"words": []any{
					map[string]any{"start": 1.5, "end": 2.0, "word": " Ça"},
					map[string]any{"start": 2.0, "end": 3.25, "word": " va?"},
				},
			},
		},
	}
}

// MockModel is an engine.Model that records its calls. Like a worker
// process, it stops being alive when a call is abandoned through its
// context.
type MockModel struct {
	Result         transcript.RawResult
	Err            error
	TranscribeFunc func(ctx context.Context, audioPath string, opts engine.Options) (transcript.RawResult, error)

	mu     sync.Mutex
	calls  []MockCall
	closed bool
	dead   bool
}

type MockCall struct {
	AudioPath string
	Options   engine.Options
	// Existed reports whether AudioPath was present during the call.
	Existed bool
}

func (m *MockModel) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (transcript.RawResult, error) {
	_, statErr := os.Stat(audioPath)
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{AudioPath: audioPath, Options: opts, Existed: statErr == nil})
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		raw, err := m.TranscribeFunc(ctx, audioPath, opts)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.mu.Lock()
			m.dead = true
			m.mu.Unlock()
		}
		return raw, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return SampleRaw(), nil
}

func (m *MockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockModel) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.dead
}

func (m *MockModel) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockBackend is an engine.Backend whose availability and load results are
// scripted. Without LoadFunc every Load returns a fresh MockModel built
// from Model.
type MockBackend struct {
	BackendName  string
	AvailableErr error
	Accelerators []platform.Accelerator
	LoadFunc     func(ctx context.Context, opts engine.LoadOptions) (engine.Model, error)
	Model        MockModel

	mu     sync.Mutex
	loads  []engine.LoadOptions
	models []*MockModel
}

func NewMockBackend(name string) *MockBackend {
	return &MockBackend{BackendName: name}
}

func (b *MockBackend) Name() string { return b.BackendName }

func (b *MockBackend) Available(ctx context.Context) error { return b.AvailableErr }

func (b *MockBackend) Supports(a platform.Accelerator) bool {
	for _, acc := range b.Accelerators {
		if acc == a {
			return true
		}
	}
	return false
}

func (b *MockBackend) Load(ctx context.Context, opts engine.LoadOptions) (engine.Model, error) {
	b.mu.Lock()
	b.loads = append(b.loads, opts)
	b.mu.Unlock()

	if b.LoadFunc != nil {
		return b.LoadFunc(ctx, opts)
	}
	m := &MockModel{
		Result:         b.Model.Result,
		Err:            b.Model.Err,
		TranscribeFunc: b.Model.TranscribeFunc,
	}
	b.mu.Lock()
	b.models = append(b.models, m)
	b.mu.Unlock()
	return m, nil
}

// Loads returns the options of every Load call, in order.
func (b *MockBackend) Loads() []engine.LoadOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]engine.LoadOptions(nil), b.loads...)
}

// Models returns the models handed out by the default Load.
func (b *MockBackend) Models() []*MockModel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockModel(nil), b.models...)
}

// NewMockResolver returns a resolver on p whose backend is b.
func NewMockResolver(p platform.Category, b *MockBackend) *engine.Resolver {
	return engine.NewResolver(
		engine.Config{Backend: b.Name(), Device: "auto"},
		engine.WithPlatform(p),
		engine.WithBackend(b),
	)
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}
