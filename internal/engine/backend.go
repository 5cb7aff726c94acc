// Package engine selects an inference backend for the host, loads a model
// for the requested tier with device fallback, and caches the loaded handle.
package engine

import (
	"context"

	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// Options are the per-call transcription parameters. Language is an ISO code
// or empty for auto-detection.
type Options struct {
	Language       string
	WordTimestamps bool
}

// LoadOptions describe one model construction attempt.
type LoadOptions struct {
	ModelID     string
	Device      platform.Accelerator
	ComputeType string
	Threads     int
}

// Backend constructs models for one inference library.
type Backend interface {
	Name() string
	// Available returns a *BackendUnavailableError when the library or tool
	// is missing.
	Available(ctx context.Context) error
	Load(ctx context.Context, opts LoadOptions) (Model, error)
}

// Model is one loaded model instance.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (transcript.RawResult, error)
	Close() error
}

// Liveness is implemented by models backed by a process that can die. The
// resolver reloads a cached model that is no longer alive.
type Liveness interface {
	Alive() bool
}

// AcceleratorSupport is implemented by backends that can run on a GPU.
// Backends without it always load on the CPU.
type AcceleratorSupport interface {
	Supports(a platform.Accelerator) bool
}

// Compute types used for the preferred and fallback attempts.
const (
	ComputeFloat16 = "float16"
	ComputeInt8    = "int8"
)
