package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leonardotrapani/webwhisper/internal/deps"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// pythonBackend runs a python inference library through the worker helper.
type pythonBackend struct {
	name   string
	module string
	hint   string
	python string
	accel  platform.Accelerator
	decode func(json.RawMessage) (transcript.RawResult, error)
}

// NewMLXBackend returns the Apple Silicon backend built on mlx-whisper.
func NewMLXBackend(python string) Backend {
	return &pythonBackend{
		name:   BackendMLX,
		module: "mlx_whisper",
		hint:   "Install with: pip install mlx-whisper==0.4.2",
		python: python,
		accel:  platform.AcceleratorMetal,
		decode: decodeMapping,
	}
}

// NewFasterWhisperBackend returns the CTranslate2 backend (CUDA or CPU).
func NewFasterWhisperBackend(python string) Backend {
	return &pythonBackend{
		name:   BackendFasterWhisper,
		module: "faster_whisper",
		hint:   "Install with: pip install faster-whisper",
		python: python,
		accel:  platform.AcceleratorCUDA,
		decode: decodeAttr,
	}
}

func (b *pythonBackend) Name() string { return b.name }

func (b *pythonBackend) Supports(a platform.Accelerator) bool {
	return a == b.accel
}

func (b *pythonBackend) Available(ctx context.Context) error {
	interp := deps.FindPython(b.python)
	if interp == "" {
		return &BackendUnavailableError{
			Backend: b.name,
			Err:     errors.New("python interpreter not found"),
			Hint:    fmt.Sprintf("Install Python 3 or set %s", deps.EnvPython),
		}
	}
	if st := deps.CheckPythonModule(ctx, interp, b.module); !st.Installed {
		return &BackendUnavailableError{
			Backend: b.name,
			Err:     fmt.Errorf("python module %s not importable with %s", b.module, interp),
			Hint:    b.hint,
		}
	}
	return nil
}

func (b *pythonBackend) Load(ctx context.Context, opts LoadOptions) (Model, error) {
	interp := deps.FindPython(b.python)
	if interp == "" {
		return nil, errors.New("python interpreter not found")
	}
	w, err := startWorker(ctx, workerSpec{
		Name:    b.name,
		Python:  interp,
		Backend: b.name,
		Load:    opts,
	})
	if err != nil {
		return nil, err
	}
	return &pythonModel{worker: w, decode: b.decode}, nil
}

type pythonModel struct {
	worker *worker
	decode func(json.RawMessage) (transcript.RawResult, error)
}

func (m *pythonModel) Transcribe(ctx context.Context, audioPath string, opts Options) (transcript.RawResult, error) {
	raw, err := m.worker.transcribe(ctx, audioPath, opts)
	if err != nil {
		return nil, err
	}
	return m.decode(raw)
}

func (m *pythonModel) Alive() bool {
	return m.worker.alive()
}

func (m *pythonModel) Close() error {
	return m.worker.Close()
}

// decodeMapping keeps the MLX result as a generic mapping.
func decodeMapping(raw json.RawMessage) (transcript.RawResult, error) {
	var m transcript.MappingResult
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode mlx result: %w", err)
	}
	return m, nil
}

// decodeAttr decodes the flattened faster-whisper objects.
func decodeAttr(raw json.RawMessage) (transcript.RawResult, error) {
	var r transcript.AttrResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode faster-whisper result: %w", err)
	}
	return &r, nil
}
