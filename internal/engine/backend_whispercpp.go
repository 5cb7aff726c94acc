package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/deps"
	"github.com/leonardotrapani/webwhisper/internal/models/whisper"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// whisperCppBackend shells out to whisper-cli once per request.
type whisperCppBackend struct {
	binary string
}

// NewWhisperCppBackend returns the whisper.cpp backend. Models come from
// the local model store (see `webwhisper model download`).
func NewWhisperCppBackend() Backend {
	return &whisperCppBackend{binary: "whisper-cli"}
}

func (b *whisperCppBackend) Name() string { return BackendWhisperCpp }

// whisper-cli uses whichever GPU it was built for; the CPU retry adds --no-gpu.
func (b *whisperCppBackend) Supports(a platform.Accelerator) bool {
	return a == platform.AcceleratorCUDA || a == platform.AcceleratorMetal
}

func (b *whisperCppBackend) Available(ctx context.Context) error {
	if st := deps.CheckWhisperCli(ctx); !st.Installed {
		return &BackendUnavailableError{
			Backend: BackendWhisperCpp,
			Err:     errors.New("whisper-cli not found"),
			Hint:    "Install whisper.cpp and make sure whisper-cli is on PATH",
		}
	}
	return nil
}

func (b *whisperCppBackend) Load(ctx context.Context, opts LoadOptions) (Model, error) {
	modelPath, err := whisper.GetInstalledPath(opts.ModelID)
	if err != nil {
		return nil, &BackendUnavailableError{
			Backend: BackendWhisperCpp,
			Err:     err,
			Hint:    fmt.Sprintf("Run: webwhisper model download %s", opts.ModelID),
		}
	}
	binary, err := exec.LookPath(b.binary)
	if err != nil {
		return nil, fmt.Errorf("whisper-cli not found: install whisper.cpp first")
	}
	return &whisperCppModel{
		binary:    binary,
		modelPath: modelPath,
		threads:   opts.Threads,
		noGPU:     opts.Device == platform.AcceleratorCPU,
	}, nil
}

type whisperCppModel struct {
	binary    string
	modelPath string
	threads   int
	noGPU     bool
}

func (m *whisperCppModel) args(audioPath, outPrefix string, opts Options) []string {
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", m.modelPath,
		"-l", lang,
		"-oj", "-ojf", // full json with token offsets
		"-of", outPrefix,
		"-np", // no progress
		"-f", audioPath,
	}
	if m.threads > 0 {
		args = append(args, "-t", strconv.Itoa(m.threads))
	}
	if m.noGPU {
		args = append(args, "--no-gpu")
	}
	return args
}

func (m *whisperCppModel) Transcribe(ctx context.Context, audioPath string, opts Options) (transcript.RawResult, error) {
	tmpDir, err := os.MkdirTemp("", "webwhisper-cpp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	input := audioPath
	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		input, err = convertToWAV16k(ctx, audioPath, tmpDir)
		if err != nil {
			return nil, err
		}
	}

	outPrefix := filepath.Join(tmpDir, "out")
	cmd := exec.CommandContext(ctx, m.binary, m.args(input, outPrefix, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("whisper-cpp: command failed after %v: %v\nstderr: %s", duration, err, stderr.String())
		return nil, fmt.Errorf("whisper-cli failed: %w", err)
	}

	data, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("read whisper-cli output: %w", err)
	}
	result, err := parseWhisperCppJSON(data, opts.WordTimestamps)
	if err != nil {
		return nil, err
	}
	log.Printf("whisper-cpp: transcribed %s in %v", filepath.Base(audioPath), duration)
	return result, nil
}

func (m *whisperCppModel) Close() error { return nil }

// convertToWAV16k converts any ffmpeg-readable input to 16 kHz mono WAV,
// the only format whisper-cli accepts on every build.
func convertToWAV16k(ctx context.Context, audioPath, dir string) (string, error) {
	if st := deps.CheckFFmpeg(ctx); !st.Installed {
		return "", fmt.Errorf("ffmpeg is required to convert %s for whisper-cli", filepath.Ext(audioPath))
	}
	out := filepath.Join(dir, "input_16k.wav")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", audioPath, "-ac", "1", "-ar", "16000", "-f", "wav", out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, truncate(strings.TrimSpace(stderr.String()), 300))
	}
	return out, nil
}

// whisper-cli -ojf output.
type cppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []cppSegment `json:"transcription"`
}

type cppOffsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type cppToken struct {
	Text    string     `json:"text"`
	Offsets cppOffsets `json:"offsets"`
}

type cppSegment struct {
	Offsets cppOffsets `json:"offsets"`
	Content string     `json:"text"`
	Tokens  []cppToken `json:"tokens"`
	words   []cppWord
}

type cppWord struct {
	start, end float64
	text       string
}

func parseWhisperCppJSON(data []byte, wordTimestamps bool) (*cppOutput, error) {
	var out cppOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper-cli output: %w", err)
	}
	if wordTimestamps {
		for i := range out.Transcription {
			out.Transcription[i].words = mergeTokens(out.Transcription[i].Tokens)
		}
	}
	return &out, nil
}

// mergeTokens joins sub-word tokens into words. A token starting with a
// space begins a new word; special tokens like [_BEG_] are dropped.
func mergeTokens(tokens []cppToken) []cppWord {
	var words []cppWord
	for _, tok := range tokens {
		if tok.Text == "" || strings.HasPrefix(tok.Text, "[_") {
			continue
		}
		start := float64(tok.Offsets.From) / 1000
		end := float64(tok.Offsets.To) / 1000
		if len(words) == 0 || strings.HasPrefix(tok.Text, " ") {
			words = append(words, cppWord{start: start, end: end, text: tok.Text})
			continue
		}
		last := &words[len(words)-1]
		last.text += tok.Text
		last.end = end
	}
	return words
}

func (o *cppOutput) Text() string {
	parts := make([]string, 0, len(o.Transcription))
	for _, s := range o.Transcription {
		if t := strings.TrimSpace(s.Content); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (o *cppOutput) Language() string { return o.Result.Language }

// whisper-cli does not report a detection probability.
func (o *cppOutput) LanguageProbability() float64 { return 0 }

func (o *cppOutput) Segments() []transcript.SegmentView {
	views := make([]transcript.SegmentView, 0, len(o.Transcription))
	for i := range o.Transcription {
		views = append(views, &o.Transcription[i])
	}
	return views
}

func (s *cppSegment) Start() float64 { return float64(s.Offsets.From) / 1000 }
func (s *cppSegment) End() float64   { return float64(s.Offsets.To) / 1000 }
func (s *cppSegment) Text() string   { return s.Content }

func (s *cppSegment) Words() []transcript.WordView {
	views := make([]transcript.WordView, 0, len(s.words))
	for i := range s.words {
		views = append(views, &s.words[i])
	}
	return views
}

func (w *cppWord) Start() float64 { return w.start }
func (w *cppWord) End() float64   { return w.end }
func (w *cppWord) Text() string   { return w.text }
