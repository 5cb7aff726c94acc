// Package session runs one transcription request end to end: it resolves the
// audio input, obtains an engine handle, normalizes and formats the result
// and persists the outputs.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/notify"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

// MicrophoneFile is the name of the WAV written for microphone input.
const MicrophoneFile = "microphone_input.wav"

// NoTimestamps replaces the formatted output when the backend returned no
// segments.
const NoTimestamps = "No timestamp data available"

type Config struct {
	Save         bool
	OutputRoot   string
	Subfolder    bool
	PreserveName bool
	SaveAudio    bool
	TempRoot     string
}

func DefaultConfig() Config {
	return Config{
		Save:         true,
		OutputRoot:   "outputs",
		PreserveName: true,
		TempRoot:     "temp",
	}
}

// Request describes one transcription. Exactly one of AudioPath and
// Microphone must be set. Nil overrides fall back to the session Config.
type Request struct {
	AudioPath  string
	Microphone *recording.Buffer

	Language       string
	WordTimestamps bool
	OutputFormat   transcript.Kind
	Tier           engine.Tier

	Save         *bool
	PreserveName *bool
	Subfolder    *bool
}

type Response struct {
	Text       string
	Formatted  string
	Info       string
	Elapsed    time.Duration
	Result     transcript.Result
	SavedFiles []string
	State      State
	Err        error
}

// Resolver hands out loaded engines.
type Resolver interface {
	Resolve(ctx context.Context, tier engine.Tier) (*engine.Handle, error)
}

type Session struct {
	mu       sync.RWMutex
	config   Config
	state    State
	resolver Resolver
	notifier notify.Notifier
	now      func() time.Time
}

type Option func(*Session)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithClock replaces time.Now for temp and output folder names.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(config Config, resolver Resolver, opts ...Option) *Session {
	s := &Session{
		config:   config,
		resolver: resolver,
		notifier: notify.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state of the current or most recent request.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Reconfigure applies config to subsequent requests.
func (s *Session) Reconfigure(config Config) {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Transcribe runs req. Failures are reported in the Response, never as a
// panic or a separate error value.
func (s *Session) Transcribe(ctx context.Context, req Request) Response {
	config := s.Config()
	s.setState(Idle)

	audioPath, inputName, cleanup, err := s.resolveAudio(config, req)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return s.fail(err, 0)
	}
	s.setState(AudioResolved)

	handle, err := s.resolver.Resolve(ctx, req.Tier)
	if err != nil {
		return s.fail(err, 0)
	}
	s.setState(EngineReady)

	s.setState(Transcribing)
	s.notifier.Transcribing()
	start := time.Now()
	raw, err := handle.Transcribe(ctx, audioPath, engine.Options{
		Language:       req.Language,
		WordTimestamps: req.WordTimestamps,
	})
	elapsed := time.Since(start)
	if err != nil {
		return s.fail(&TranscriptionError{Err: err}, elapsed)
	}

	result := transcript.Normalize(raw)
	kind := req.OutputFormat
	if kind == "" {
		kind = transcript.KindJSON
	}
	formatted, err := render(result, kind)
	if err != nil {
		return s.fail(err, elapsed)
	}

	preserve := pick(req.PreserveName, config.PreserveName)
	base := transcript.BaseName(audioPath, preserve)

	resp := Response{
		Text:      result.Text,
		Formatted: formatted,
		Elapsed:   elapsed,
		Result:    result,
		State:     Completed,
	}

	info := []string{
		inputName,
		fmt.Sprintf("Detected language: %s (confidence: %.2f)", result.DetectedLanguage(), result.LanguageProbability),
		fmt.Sprintf("Output file: %s.txt", base),
		fmt.Sprintf("Engine: %s %s on %s", handle.Backend(), handle.ModelID(), handle.Device()),
		fmt.Sprintf("Processing time: %.2fs", elapsed.Seconds()),
	}

	if pick(req.Save, config.Save) {
		files, err := s.persist(config, req, audioPath, base, result, kind)
		resp.SavedFiles = files
		if err != nil {
			log.Printf("Session: save failed: %v", err)
			info = append(info, "Save failed: "+err.Error())
		} else if len(files) > 0 {
			log.Printf("Session: output saved to %s", filepath.Dir(files[0]))
		}
	}
	resp.Info = strings.Join(info, "\n")

	s.setState(Completed)
	s.notifier.Completed(result.Text)
	return resp
}

func (s *Session) fail(err error, elapsed time.Duration) Response {
	log.Printf("Session: transcription failed: %v", err)
	s.setState(Failed)
	if !errors.Is(err, ErrInput) {
		s.notifier.Error(err.Error())
	}
	return Response{
		Text:    err.Error(),
		Elapsed: elapsed,
		State:   Failed,
		Err:     err,
	}
}

// resolveAudio returns the file to transcribe, its display line and the
// cleanup for any temporary files. cleanup is non-nil whenever something
// was created, including on error.
func (s *Session) resolveAudio(config Config, req Request) (path, name string, cleanup func(), err error) {
	switch {
	case req.AudioPath == "" && req.Microphone == nil:
		return "", "", nil, &InputError{Reason: "No audio input provided"}
	case req.AudioPath != "" && req.Microphone != nil:
		return "", "", nil, &InputError{Reason: "Provide either an audio file or a microphone recording, not both"}
	case req.AudioPath != "":
		info, err := os.Stat(req.AudioPath)
		if err != nil {
			if os.IsNotExist(err) {
				return "", "", nil, &InputError{Reason: fmt.Sprintf("Audio file not found: %s", req.AudioPath)}
			}
			return "", "", nil, &InputError{Reason: fmt.Sprintf("Cannot read audio file: %v", err)}
		}
		if info.IsDir() {
			return "", "", nil, &InputError{Reason: fmt.Sprintf("Audio path is a directory: %s", req.AudioPath)}
		}
		return req.AudioPath, "Input: " + filepath.Base(req.AudioPath), nil, nil
	}

	if err := req.Microphone.Validate(); err != nil {
		return "", "", nil, &InputError{Reason: "Microphone recording: " + err.Error()}
	}
	dir, err := s.makeTempDir(config.TempRoot)
	if err != nil {
		return "", "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Session: failed to remove temp dir %s: %v", dir, err)
		}
	}
	path = filepath.Join(dir, MicrophoneFile)
	if err := req.Microphone.SaveWAV(path); err != nil {
		return "", "", cleanup, fmt.Errorf("write microphone audio: %w", err)
	}
	return path, "Input: Microphone recording", cleanup, nil
}

// makeTempDir creates <root>/<unix-timestamp>, suffixed when a request in
// the same second already owns that name.
func (s *Session) makeTempDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", err
	}
	stamp := strconv.FormatInt(s.now().Unix(), 10)
	for i := 0; i < 100; i++ {
		name := stamp
		if i > 0 {
			name = fmt.Sprintf("%s_%d", stamp, i)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free temp dir under %s", root)
}

func (s *Session) persist(config Config, req Request, audioPath, base string, result transcript.Result, kind transcript.Kind) ([]string, error) {
	dir := config.OutputRoot
	if dir == "" {
		dir = "outputs"
	}
	if pick(req.Subfolder, config.Subfolder) {
		dir = filepath.Join(dir, transcript.SaveFolderName(s.now()))
	}

	saved, err := transcript.Save(dir, base, result, kind)
	if err != nil {
		return nil, err
	}
	files := []string{saved.TextPath}
	if saved.DetailPath != "" {
		files = append(files, saved.DetailPath)
	}

	if config.SaveAudio {
		audioBase := base
		if base == transcript.DefaultBaseName {
			audioBase = "audio"
		}
		dst := filepath.Join(dir, audioBase+filepath.Ext(audioPath))
		if err := copyFile(audioPath, dst); err != nil {
			return files, err
		}
		files = append(files, dst)
	}
	return files, nil
}

func render(result transcript.Result, kind transcript.Kind) (string, error) {
	if kind != transcript.KindText && len(result.Segments) == 0 {
		return NoTimestamps, nil
	}
	return transcript.Format(result, kind)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create audio copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy audio: %w", err)
	}
	return out.Close()
}

func pick(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}
