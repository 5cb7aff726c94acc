package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
	"github.com/sashabaranov/go-openai"
)

// openAIBackend sends audio to the hosted Whisper API.
type openAIBackend struct {
	apiKey  string
	baseURL string
}

// NewOpenAIBackend returns the cloud backend for apiKey.
func NewOpenAIBackend(apiKey string) Backend {
	return &openAIBackend{apiKey: apiKey}
}

// NewOpenAICompatibleBackend targets an OpenAI-compatible endpoint such as
// a local whisper server.
func NewOpenAICompatibleBackend(apiKey, baseURL string) Backend {
	return &openAIBackend{apiKey: apiKey, baseURL: baseURL}
}

func (b *openAIBackend) Name() string { return BackendOpenAI }

func (b *openAIBackend) Available(ctx context.Context) error {
	if b.apiKey == "" {
		return &BackendUnavailableError{
			Backend: BackendOpenAI,
			Err:     errors.New("API key not configured"),
			Hint:    "Set OPENAI_API_KEY or [providers.openai] api_key in config.toml",
		}
	}
	return nil
}

func (b *openAIBackend) Load(ctx context.Context, opts LoadOptions) (Model, error) {
	config := openai.DefaultConfig(b.apiKey)
	if b.baseURL != "" {
		config.BaseURL = b.baseURL
	}
	return &openAIModel{
		client: openai.NewClientWithConfig(config),
		model:  opts.ModelID,
	}, nil
}

type openAIModel struct {
	client *openai.Client
	model  string
}

func (m *openAIModel) Transcribe(ctx context.Context, audioPath string, opts Options) (transcript.RawResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	req := openai.AudioRequest{
		Model:    m.model,
		Reader:   f,
		FilePath: filepath.Base(audioPath),
		Language: opts.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		},
	}
	if opts.WordTimestamps {
		req.TimestampGranularities = append(req.TimestampGranularities, openai.TranscriptionTimestampGranularityWord)
	}

	start := time.Now()
	resp, err := m.client.CreateTranscription(ctx, req)
	duration := time.Since(start)
	if err != nil {
		log.Printf("openai: API call failed after %v: %v", duration, err)
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	log.Printf("openai: transcribed %s in %v", filepath.Base(audioPath), duration)
	return newOpenAIResult(resp), nil
}

func (m *openAIModel) Close() error { return nil }

// openAIResult adapts the verbose_json response. Words arrive as one flat
// list and are assigned to the segment whose span contains their start.
type openAIResult struct {
	resp     openai.AudioResponse
	segments []openAISegment
}

type openAISegment struct {
	start, end float64
	text       string
	words      []transcript.WordView
}

type openAIWord struct {
	start, end float64
	text       string
}

func newOpenAIResult(resp openai.AudioResponse) *openAIResult {
	r := &openAIResult{resp: resp}
	r.segments = make([]openAISegment, len(resp.Segments))
	for i, s := range resp.Segments {
		r.segments[i] = openAISegment{start: s.Start, end: s.End, text: s.Text}
	}

	seg := 0
	for _, w := range resp.Words {
		if len(r.segments) == 0 {
			break
		}
		for seg < len(r.segments)-1 && w.Start >= r.segments[seg].end {
			seg++
		}
		r.segments[seg].words = append(r.segments[seg].words, &openAIWord{start: w.Start, end: w.End, text: w.Word})
	}
	return r
}

func (r *openAIResult) Text() string { return r.resp.Text }

// Language converts the API's language name ("english") to its code.
func (r *openAIResult) Language() string {
	if lang, ok := language.FromName(r.resp.Language); ok {
		return lang.Code
	}
	return r.resp.Language
}

// The API does not report a detection probability.
func (r *openAIResult) LanguageProbability() float64 { return 0 }

func (r *openAIResult) Segments() []transcript.SegmentView {
	views := make([]transcript.SegmentView, 0, len(r.segments))
	for i := range r.segments {
		views = append(views, &r.segments[i])
	}
	return views
}

func (s *openAISegment) Start() float64               { return s.start }
func (s *openAISegment) End() float64                 { return s.end }
func (s *openAISegment) Text() string                 { return s.text }
func (s *openAISegment) Words() []transcript.WordView { return s.words }

func (w *openAIWord) Start() float64 { return w.start }
func (w *openAIWord) End() float64   { return w.end }
func (w *openAIWord) Text() string   { return w.text }
