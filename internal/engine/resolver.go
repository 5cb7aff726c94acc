package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// Config selects and parameterizes backends.
type Config struct {
	Backend string // auto, mlx, faster-whisper, whisper-cpp, openai
	Device  string // auto, cpu, cuda, metal
	Python  string
	Threads int
	APIKey  string

	// OpenAIBaseURL points the openai backend at a compatible server.
	OpenAIBaseURL string
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendAuto,
		Device:  "auto",
	}
}

// LoadStatus tags the result of the construction policy.
type LoadStatus int

const (
	Succeeded LoadStatus = iota
	FailedGPU
	FailedAll
)

func (s LoadStatus) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case FailedGPU:
		return "failed-gpu"
	default:
		return "failed-all"
	}
}

// LoadOutcome is the tagged result of a construction attempt.
type LoadOutcome struct {
	Status   LoadStatus
	Model    Model
	Device   platform.Accelerator
	FellBack bool
	GPUErr   error
	CPUErr   error
}

// Handle is bound to exactly one loaded model. Calls are serialized.
type Handle struct {
	mu       sync.Mutex
	model    Model
	backend  string
	modelID  string
	device   platform.Accelerator
	tier     Tier
	category platform.Category
	fellBack bool
	loadedAt time.Time
}

func (h *Handle) Backend() string              { return h.backend }
func (h *Handle) ModelID() string              { return h.modelID }
func (h *Handle) Device() platform.Accelerator { return h.device }
func (h *Handle) Tier() Tier                   { return h.tier }
func (h *Handle) Platform() platform.Category  { return h.category }
func (h *Handle) FellBack() bool               { return h.fellBack }

// Transcribe runs the model on audioPath. A language of "auto" is passed to
// the backend as absent.
func (h *Handle) Transcribe(ctx context.Context, audioPath string, opts Options) (transcript.RawResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.model == nil {
		return nil, ErrReleased
	}
	opts.Language = language.Hint(opts.Language)
	return h.model.Transcribe(ctx, audioPath, opts)
}

// alive reports whether the handle can still serve calls. The caller holds
// the resolver lock, which also guards close.
func (h *Handle) alive() bool {
	if h.model == nil {
		return false
	}
	if l, ok := h.model.(Liveness); ok {
		return l.Alive()
	}
	return true
}

func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.model == nil {
		return nil
	}
	err := h.model.Close()
	h.model = nil
	return err
}

// Info describes the loaded engine.
type Info struct {
	Backend  string               `json:"backend"`
	Model    string               `json:"model"`
	Device   platform.Accelerator `json:"device"`
	Tier     string               `json:"tier"`
	Platform string               `json:"platform"`
	FellBack bool                 `json:"fell_back"`
	LoadedAt time.Time            `json:"loaded_at"`
}

type cacheKey struct {
	category platform.Category
	tier     Tier
}

// Resolver owns the process-wide engine handle. At most one model is loaded
// at a time; resolving a different key releases the previous handle.
type Resolver struct {
	mu       sync.Mutex
	config   Config
	category platform.Category
	custom   map[string]Backend
	backends map[string]Backend
	handle   *Handle
	key      cacheKey
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithPlatform overrides host classification.
func WithPlatform(c platform.Category) Option {
	return func(r *Resolver) { r.category = c }
}

// WithBackend registers b under b.Name(), replacing the built-in backend of
// the same name.
func WithBackend(b Backend) Option {
	return func(r *Resolver) { r.custom[b.Name()] = b }
}

func NewResolver(config Config, opts ...Option) *Resolver {
	r := &Resolver{
		config:   config,
		category: platform.Current(),
		custom:   make(map[string]Backend),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.backends = r.buildBackends(config)
	return r
}

func (r *Resolver) buildBackends(config Config) map[string]Backend {
	backends := map[string]Backend{
		BackendMLX:           NewMLXBackend(config.Python),
		BackendFasterWhisper: NewFasterWhisperBackend(config.Python),
		BackendWhisperCpp:    NewWhisperCppBackend(),
		BackendOpenAI:        NewOpenAIBackend(config.APIKey),
	}
	if config.OpenAIBaseURL != "" {
		backends[BackendOpenAI] = NewOpenAICompatibleBackend(config.APIKey, config.OpenAIBaseURL)
	}
	for name, b := range r.custom {
		backends[name] = b
	}
	return backends
}

// Platform returns the category the resolver selects for.
func (r *Resolver) Platform() platform.Category {
	return r.category
}

// BackendName returns the backend Resolve would use.
func (r *Resolver) BackendName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backendName()
}

func (r *Resolver) backendName() string {
	name := strings.ToLower(strings.TrimSpace(r.config.Backend))
	if name != "" && name != BackendAuto {
		return name
	}
	if r.category == platform.AppleSiliconMac {
		return BackendMLX
	}
	return BackendFasterWhisper
}

// Resolve returns the handle for tier, loading the model on first use. The
// handle is cached per (platform, tier).
func (r *Resolver) Resolve(ctx context.Context, tier Tier) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{category: r.category, tier: tier}
	if r.handle != nil && r.key == key {
		if r.handle.alive() {
			return r.handle, nil
		}
		log.Printf("Engine: cached %s model %s is no longer alive, reloading", r.handle.backend, r.handle.modelID)
	}

	name := r.backendName()
	b, ok := r.backends[name]
	if !ok {
		return nil, &BackendUnavailableError{
			Backend: name,
			Hint:    fmt.Sprintf("supported backends: %s", strings.Join(Backends(), ", ")),
		}
	}

	if err := b.Available(ctx); err != nil {
		var unavailable *BackendUnavailableError
		if !errors.As(err, &unavailable) {
			err = &BackendUnavailableError{Backend: name, Err: err}
		}
		return nil, err
	}

	// one model in memory at a time
	if err := r.releaseLocked(); err != nil {
		log.Printf("Engine: release previous model: %v", err)
	}

	modelID := ModelID(name, tier)
	outcome := r.construct(ctx, b, modelID)
	if outcome.Status != Succeeded {
		// a missing model file is not a device problem
		for _, err := range []error{outcome.GPUErr, outcome.CPUErr} {
			if IsBackendUnavailable(err) {
				return nil, err
			}
		}
		return nil, &DeviceInitError{
			Backend: name,
			Model:   modelID,
			GPUErr:  outcome.GPUErr,
			CPUErr:  outcome.CPUErr,
		}
	}

	r.handle = &Handle{
		model:    outcome.Model,
		backend:  name,
		modelID:  modelID,
		device:   outcome.Device,
		tier:     tier,
		category: r.category,
		fellBack: outcome.FellBack,
		loadedAt: time.Now(),
	}
	r.key = key
	log.Printf("Engine: loaded %s model %s on %s (platform %s, tier %s)", name, modelID, outcome.Device, r.category, tier)
	return r.handle, nil
}

// construct loads on the preferred device and retries once on CPU with
// reduced precision.
func (r *Resolver) construct(ctx context.Context, b Backend, modelID string) LoadOutcome {
	preferred := r.preferredDevice(b)

	first := r.attempt(ctx, b, modelID, preferred)
	if first.Status != FailedGPU || IsBackendUnavailable(first.GPUErr) {
		return first
	}

	log.Printf("Engine: %s failed on %s (%v), falling back to CPU", b.Name(), preferred, first.GPUErr)
	retry := r.attempt(ctx, b, modelID, platform.AcceleratorCPU)
	retry.GPUErr = first.GPUErr
	retry.FellBack = retry.Status == Succeeded
	return retry
}

func (r *Resolver) attempt(ctx context.Context, b Backend, modelID string, device platform.Accelerator) LoadOutcome {
	compute := ComputeFloat16
	if device == platform.AcceleratorCPU {
		compute = ComputeInt8
	}

	model, err := b.Load(ctx, LoadOptions{
		ModelID:     modelID,
		Device:      device,
		ComputeType: compute,
		Threads:     r.config.Threads,
	})
	switch {
	case err == nil:
		return LoadOutcome{Status: Succeeded, Model: model, Device: device}
	case device != platform.AcceleratorCPU:
		return LoadOutcome{Status: FailedGPU, Device: device, GPUErr: err}
	default:
		return LoadOutcome{Status: FailedAll, Device: device, CPUErr: err}
	}
}

func (r *Resolver) preferredDevice(b Backend) platform.Accelerator {
	device := r.category.PreferredAccelerator()
	switch strings.ToLower(strings.TrimSpace(r.config.Device)) {
	case string(platform.AcceleratorCPU):
		return platform.AcceleratorCPU
	case string(platform.AcceleratorCUDA):
		device = platform.AcceleratorCUDA
	case string(platform.AcceleratorMetal):
		device = platform.AcceleratorMetal
	}

	if device == platform.AcceleratorCPU {
		return device
	}
	if s, ok := b.(AcceleratorSupport); ok && s.Supports(device) {
		return device
	}
	return platform.AcceleratorCPU
}

// Current reports the loaded engine, if any.
func (r *Resolver) Current() (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.handle
	if h == nil {
		return Info{}, false
	}
	return Info{
		Backend:  h.backend,
		Model:    h.modelID,
		Device:   h.device,
		Tier:     h.tier.String(),
		Platform: h.category.String(),
		FellBack: h.fellBack,
		LoadedAt: h.loadedAt,
	}, true
}

// Release drops the cached handle and frees the backend model.
func (r *Resolver) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked()
}

func (r *Resolver) releaseLocked() error {
	if r.handle == nil {
		return nil
	}
	h := r.handle
	r.handle = nil
	r.key = cacheKey{}

	if err := h.close(); err != nil {
		return fmt.Errorf("close %s model: %w", h.backend, err)
	}
	log.Printf("Engine: released %s model %s", h.backend, h.modelID)
	return nil
}

// Reconfigure applies a new configuration. The cached handle is released
// when backend selection or load parameters change.
func (r *Resolver) Reconfigure(config Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if config == r.config {
		return nil
	}
	r.config = config
	r.backends = r.buildBackends(config)
	return r.releaseLocked()
}
