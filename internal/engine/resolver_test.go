package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/testutil"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

func TestResolverSelectsBackendAndModel(t *testing.T) {
	tests := []struct {
		name        string
		platform    platform.Category
		tier        engine.Tier
		wantBackend string
		wantModel   string
	}{
		{"apple silicon high accuracy", platform.AppleSiliconMac, engine.HighAccuracy, engine.BackendMLX, "mlx-community/whisper-large-v3-mlx"},
		{"apple silicon fast", platform.AppleSiliconMac, engine.Fast, engine.BackendMLX, "mlx-community/whisper-large-v3-turbo"},
		{"apple silicon balanced", platform.AppleSiliconMac, engine.Balanced, engine.BackendMLX, "mlx-community/whisper-medium-mlx"},
		{"apple silicon fastest", platform.AppleSiliconMac, engine.Fastest, engine.BackendMLX, "mlx-community/whisper-small-mlx"},
		{"windows high accuracy", platform.Windows, engine.HighAccuracy, engine.BackendFasterWhisper, "large-v3"},
		{"windows fast", platform.Windows, engine.Fast, engine.BackendFasterWhisper, "large-v3-turbo"},
		{"linux balanced", platform.Linux, engine.Balanced, engine.BackendFasterWhisper, "medium"},
		{"intel mac fastest", platform.IntelMac, engine.Fastest, engine.BackendFasterWhisper, "small"},
		{"other fastest", platform.Other, engine.Fastest, engine.BackendFasterWhisper, "small"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mlx := testutil.NewMockBackend(engine.BackendMLX)
			fw := testutil.NewMockBackend(engine.BackendFasterWhisper)
			r := engine.NewResolver(engine.DefaultConfig(),
				engine.WithPlatform(tt.platform),
				engine.WithBackend(mlx),
				engine.WithBackend(fw),
			)

			if got := r.BackendName(); got != tt.wantBackend {
				t.Errorf("BackendName() = %s, want %s", got, tt.wantBackend)
			}

			h, err := r.Resolve(context.Background(), tt.tier)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if h.Backend() != tt.wantBackend || h.ModelID() != tt.wantModel {
				t.Errorf("handle = %s/%s, want %s/%s", h.Backend(), h.ModelID(), tt.wantBackend, tt.wantModel)
			}
			if h.Tier() != tt.tier || h.Platform() != tt.platform {
				t.Errorf("handle tier/platform = %s/%s", h.Tier(), h.Platform())
			}
		})
	}
}

func TestModelIDCatalogs(t *testing.T) {
	for _, tier := range engine.Tiers() {
		if engine.ModelID(engine.BackendWhisperCpp, tier) != engine.ModelID(engine.BackendFasterWhisper, tier) {
			t.Errorf("whisper-cpp and faster-whisper should share the generic catalog for %s", tier)
		}
		if got := engine.ModelID(engine.BackendOpenAI, tier); got != "whisper-1" {
			t.Errorf("ModelID(openai, %s) = %s", tier, got)
		}
	}
}

func TestResolverCachesHandle(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	r := testutil.NewMockResolver(platform.Linux, b)
	ctx := context.Background()

	h1, err := r.Resolve(ctx, engine.Fast)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	h2, err := r.Resolve(ctx, engine.Fast)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if h1 != h2 {
		t.Error("same tier should return the cached handle")
	}
	if n := len(b.Loads()); n != 1 {
		t.Errorf("backend loaded %d times, want 1", n)
	}
}

func TestResolverReloadsDeadModel(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.Model.TranscribeFunc = func(ctx context.Context, audioPath string, opts engine.Options) (transcript.RawResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return testutil.SampleRaw(), nil
	}
	r := testutil.NewMockResolver(platform.Linux, b)

	h1, err := r.Resolve(context.Background(), engine.Fast)
	if err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h1.Transcribe(cancelled, "a.wav", engine.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcribe() error = %v, want context.Canceled", err)
	}

	h2, err := r.Resolve(context.Background(), engine.Fast)
	if err != nil {
		t.Fatalf("Resolve() after abandoned call error = %v", err)
	}
	if h1 == h2 {
		t.Fatal("a dead model should not be served from the cache")
	}
	if _, err := h2.Transcribe(context.Background(), "a.wav", engine.Options{}); err != nil {
		t.Errorf("Transcribe() on reloaded handle error = %v", err)
	}

	models := b.Models()
	if len(models) != 2 {
		t.Fatalf("loaded %d models, want 2", len(models))
	}
	if !models[0].Closed() {
		t.Error("dead model should be closed")
	}
	if h3, _ := r.Resolve(context.Background(), engine.Fast); h3 != h2 {
		t.Error("a live reloaded model should be cached again")
	}
}

func TestResolverDifferentTierReleasesPrevious(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	r := testutil.NewMockResolver(platform.Linux, b)
	ctx := context.Background()

	h1, err := r.Resolve(ctx, engine.HighAccuracy)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := r.Resolve(ctx, engine.Fastest)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("different tier should load a new handle")
	}

	models := b.Models()
	if len(models) != 2 {
		t.Fatalf("loaded %d models, want 2", len(models))
	}
	if !models[0].Closed() {
		t.Error("previous model should be closed before loading a new one")
	}
	if models[1].Closed() {
		t.Error("current model should stay open")
	}

	if _, err := h1.Transcribe(ctx, "a.wav", engine.Options{}); !errors.Is(err, engine.ErrReleased) {
		t.Errorf("released handle Transcribe() error = %v, want ErrReleased", err)
	}
}

func TestResolverGPUFallback(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.Accelerators = []platform.Accelerator{platform.AcceleratorCUDA}
	b.LoadFunc = func(ctx context.Context, opts engine.LoadOptions) (engine.Model, error) {
		if opts.Device == platform.AcceleratorCUDA {
			return nil, errors.New("CUDA driver version is insufficient")
		}
		return &testutil.MockModel{}, nil
	}
	r := testutil.NewMockResolver(platform.Windows, b)

	h, err := r.Resolve(context.Background(), engine.HighAccuracy)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if h.Device() != platform.AcceleratorCPU || !h.FellBack() {
		t.Errorf("device = %s, fellBack = %v; want cpu fallback", h.Device(), h.FellBack())
	}

	loads := b.Loads()
	if len(loads) != 2 {
		t.Fatalf("Load called %d times, want 2", len(loads))
	}
	if loads[0].Device != platform.AcceleratorCUDA || loads[0].ComputeType != engine.ComputeFloat16 {
		t.Errorf("first attempt = %+v, want cuda/float16", loads[0])
	}
	if loads[1].Device != platform.AcceleratorCPU || loads[1].ComputeType != engine.ComputeInt8 {
		t.Errorf("retry = %+v, want cpu/int8", loads[1])
	}

	info, ok := r.Current()
	if !ok || !info.FellBack || info.Device != platform.AcceleratorCPU {
		t.Errorf("Current() = %+v, %v", info, ok)
	}
}

func TestResolverDeviceInitFailure(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.Accelerators = []platform.Accelerator{platform.AcceleratorCUDA}
	b.LoadFunc = func(ctx context.Context, opts engine.LoadOptions) (engine.Model, error) {
		return nil, errors.New("out of memory on " + string(opts.Device))
	}
	r := testutil.NewMockResolver(platform.Windows, b)

	_, err := r.Resolve(context.Background(), engine.HighAccuracy)
	if !errors.Is(err, engine.ErrDeviceInit) {
		t.Fatalf("Resolve() error = %v, want ErrDeviceInit", err)
	}
	var initErr *engine.DeviceInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("error type = %T", err)
	}
	if initErr.GPUErr == nil || initErr.CPUErr == nil {
		t.Errorf("both attempts should be reported: %+v", initErr)
	}
	if initErr.Model != "large-v3" {
		t.Errorf("Model = %s, want large-v3", initErr.Model)
	}
	if _, ok := r.Current(); ok {
		t.Error("nothing should be cached after a failed load")
	}
}

func TestResolverCPUOnlyPlatformSkipsGPU(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.Accelerators = []platform.Accelerator{platform.AcceleratorCUDA}
	b.LoadFunc = func(ctx context.Context, opts engine.LoadOptions) (engine.Model, error) {
		return nil, errors.New("cannot load")
	}
	r := testutil.NewMockResolver(platform.IntelMac, b)

	_, err := r.Resolve(context.Background(), engine.Fast)
	if !engine.IsDeviceInit(err) {
		t.Fatalf("Resolve() error = %v, want device init", err)
	}
	loads := b.Loads()
	if len(loads) != 1 || loads[0].Device != platform.AcceleratorCPU {
		t.Errorf("loads = %+v, want a single cpu attempt", loads)
	}
}

func TestResolverDeviceOverride(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.Accelerators = []platform.Accelerator{platform.AcceleratorCUDA}

	r := engine.NewResolver(
		engine.Config{Backend: engine.BackendFasterWhisper, Device: "cuda"},
		engine.WithPlatform(platform.Linux),
		engine.WithBackend(b),
	)
	h, err := r.Resolve(context.Background(), engine.Fast)
	if err != nil {
		t.Fatal(err)
	}
	if h.Device() != platform.AcceleratorCUDA {
		t.Errorf("device = %s, want cuda from config", h.Device())
	}
}

func TestResolverUnsupportedAcceleratorUsesCPU(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendMLX)
	r := testutil.NewMockResolver(platform.AppleSiliconMac, b)

	h, err := r.Resolve(context.Background(), engine.Fast)
	if err != nil {
		t.Fatal(err)
	}
	if h.Device() != platform.AcceleratorCPU || h.FellBack() {
		t.Errorf("device = %s fellBack = %v, want direct cpu", h.Device(), h.FellBack())
	}
}

func TestResolverBackendUnavailable(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	b.AvailableErr = errors.New("No module named 'faster_whisper'")
	r := testutil.NewMockResolver(platform.Linux, b)

	_, err := r.Resolve(context.Background(), engine.HighAccuracy)
	if !errors.Is(err, engine.ErrBackendUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrBackendUnavailable", err)
	}
	if len(b.Loads()) != 0 {
		t.Error("an unavailable backend should never be loaded")
	}
}

func TestResolverUnknownBackend(t *testing.T) {
	r := engine.NewResolver(engine.Config{Backend: "vosk"}, engine.WithPlatform(platform.Linux))
	_, err := r.Resolve(context.Background(), engine.HighAccuracy)
	var unavailable *engine.BackendUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Backend != "vosk" {
		t.Fatalf("Resolve() error = %v, want unavailable vosk", err)
	}
}

func TestResolverMissingModelIsNotDeviceError(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendWhisperCpp)
	b.Accelerators = []platform.Accelerator{platform.AcceleratorCUDA}
	b.LoadFunc = func(ctx context.Context, opts engine.LoadOptions) (engine.Model, error) {
		return nil, &engine.BackendUnavailableError{Backend: engine.BackendWhisperCpp, Err: errors.New("model not installed: large-v3")}
	}
	r := testutil.NewMockResolver(platform.Windows, b)

	_, err := r.Resolve(context.Background(), engine.HighAccuracy)
	if !engine.IsBackendUnavailable(err) || engine.IsDeviceInit(err) {
		t.Fatalf("Resolve() error = %v, want backend unavailable", err)
	}
	if n := len(b.Loads()); n != 1 {
		t.Errorf("Load called %d times, want no CPU retry", n)
	}
}

func TestResolverRelease(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	r := testutil.NewMockResolver(platform.Linux, b)
	ctx := context.Background()

	if err := r.Release(); err != nil {
		t.Errorf("Release() with nothing loaded error = %v", err)
	}
	if _, err := r.Resolve(ctx, engine.Balanced); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Current(); !ok {
		t.Fatal("Current() should report the loaded engine")
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, ok := r.Current(); ok {
		t.Error("Current() should be empty after Release")
	}
	if !b.Models()[0].Closed() {
		t.Error("Release should close the model")
	}

	if _, err := r.Resolve(ctx, engine.Balanced); err != nil {
		t.Fatal(err)
	}
	if n := len(b.Loads()); n != 2 {
		t.Errorf("Load called %d times, want reload after release", n)
	}
}

func TestResolverReconfigure(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	config := engine.Config{Backend: engine.BackendFasterWhisper, Device: "auto"}
	r := engine.NewResolver(config, engine.WithPlatform(platform.Linux), engine.WithBackend(b))
	ctx := context.Background()

	if _, err := r.Resolve(ctx, engine.Fast); err != nil {
		t.Fatal(err)
	}
	if err := r.Reconfigure(config); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Current(); !ok {
		t.Error("unchanged config should keep the engine loaded")
	}

	config.Threads = 4
	if err := r.Reconfigure(config); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Current(); ok {
		t.Error("changed config should release the engine")
	}
	if _, err := r.Resolve(ctx, engine.Fast); err != nil {
		t.Fatal(err)
	}
	loads := b.Loads()
	if loads[len(loads)-1].Threads != 4 {
		t.Errorf("reload threads = %d, want 4", loads[len(loads)-1].Threads)
	}
}

func TestHandleTranscribeLanguageHint(t *testing.T) {
	b := testutil.NewMockBackend(engine.BackendFasterWhisper)
	r := testutil.NewMockResolver(platform.Linux, b)
	ctx := context.Background()

	h, err := r.Resolve(ctx, engine.Fast)
	if err != nil {
		t.Fatal(err)
	}
	for _, lang := range []string{"auto", "AUTO", "", "de"} {
		raw, err := h.Transcribe(ctx, "clip.wav", engine.Options{Language: lang, WordTimestamps: true})
		if err != nil {
			t.Fatalf("Transcribe(%q) error = %v", lang, err)
		}
		if got := transcript.Normalize(raw).Language; got != "en" {
			t.Errorf("Normalize().Language = %s", got)
		}
	}

	calls := b.Models()[0].Calls()
	want := []string{"", "", "", "de"}
	for i, c := range calls {
		if c.Options.Language != want[i] {
			t.Errorf("call %d language = %q, want %q", i, c.Options.Language, want[i])
		}
		if !c.Options.WordTimestamps {
			t.Errorf("call %d lost WordTimestamps", i)
		}
	}
}
