package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/session"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
)

const (
	maxUploadBytes = 2 << 30
	maxMemoryBytes = 32 << 20
)

type tierInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type languageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type infoResponse struct {
	Platform      string         `json:"platform"`
	System        string         `json:"system"`
	Backend       string         `json:"backend"`
	Engine        *engine.Info   `json:"engine"`
	Tiers         []tierInfo     `json:"tiers"`
	Languages     []languageInfo `json:"languages"`
	OutputFormats []string       `json:"output_formats"`
}

// TranscribeResponse is the JSON body returned for every transcription,
// successful or not.
type TranscribeResponse struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	Text      string   `json:"text"`
	Formatted string   `json:"formatted"`
	Info      string   `json:"info"`
	Elapsed   float64  `json:"elapsed"`
	Files     []string `json:"files"`
	Error     string   `json:"error,omitempty"`
}

func newTranscribeResponse(id string, resp session.Response) TranscribeResponse {
	out := TranscribeResponse{
		ID:        id,
		State:     resp.State.String(),
		Text:      resp.Text,
		Formatted: resp.Formatted,
		Info:      resp.Info,
		Elapsed:   resp.Elapsed.Seconds(),
		Files:     resp.SavedFiles,
	}
	if out.Files == nil {
		out.Files = []string{}
	}
	if resp.Err != nil {
		out.Error = resp.Err.Error()
	}
	return out
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	info := infoResponse{
		Platform:      s.engine.Platform().String(),
		System:        platform.Describe(ctx, s.engine.Platform()),
		Backend:       s.engine.BackendName(),
		OutputFormats: []string{string(transcript.KindJSON), string(transcript.KindSRT)},
	}
	if current, ok := s.engine.Current(); ok {
		info.Engine = &current
	}
	for _, t := range engine.Tiers() {
		info.Tiers = append(info.Tiers, tierInfo{Name: t.String(), Label: t.Label()})
	}
	info.Languages = append(info.Languages, languageInfo{Code: language.Auto.Code, Name: language.Auto.Name})
	for _, l := range language.List() {
		info.Languages = append(info.Languages, languageInfo{Code: l.Code, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.engine.Release()
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, TranscribeResponse{ID: id, State: session.Failed.String(), Error: fmt.Sprintf("invalid form: %v", err)})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := s.requestFromForm(r.MultipartForm.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TranscribeResponse{ID: id, State: session.Failed.String(), Error: err.Error()})
		return
	}

	if files := r.MultipartForm.File["audio"]; len(files) > 0 {
		dir, err := os.MkdirTemp("", "webwhisper-upload-*")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, TranscribeResponse{ID: id, State: session.Failed.String(), Error: err.Error()})
			return
		}
		defer os.RemoveAll(dir)

		path, err := saveUpload(files[0], dir)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, TranscribeResponse{ID: id, State: session.Failed.String(), Error: err.Error()})
			return
		}
		req.AudioPath = path
	}

	log.Printf("Server: transcription %s started", id)
	resp := s.transcribe(r.Context(), req)
	log.Printf("Server: transcription %s %s in %v", id, resp.State, resp.Elapsed)
	writeJSON(w, statusFor(resp), newTranscribeResponse(id, resp))
}

// requestFromForm applies form fields on top of the configured defaults.
func (s *Server) requestFromForm(values map[string][]string) (session.Request, error) {
	req := s.defaults()
	get := func(key string) (string, bool) {
		v, ok := values[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	}

	if v, ok := get("language"); ok && v != "" {
		if !language.IsValidCode(v) {
			return req, fmt.Errorf("unsupported language: %s", v)
		}
		req.Language = v
	}
	if v, ok := get("word_timestamps"); ok {
		b, err := parseBool(v)
		if err != nil {
			return req, fmt.Errorf("word_timestamps: %w", err)
		}
		req.WordTimestamps = b
	}
	if v, ok := get("output_format"); ok {
		kind, err := transcript.ParseKind(v)
		if err != nil {
			return req, err
		}
		req.OutputFormat = kind
	}
	if v, ok := get("tier"); ok {
		req.Tier = engine.ParseTier(v)
	}
	if v, ok := get("save"); ok {
		b, err := parseBool(v)
		if err != nil {
			return req, fmt.Errorf("save: %w", err)
		}
		req.Save = &b
	}
	return req, nil
}

// saveUpload stores the upload under its own base name so the session can
// derive output names from it.
func saveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." || name == "" {
		name = "upload"
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, dst.Close()
}

func statusFor(resp session.Response) int {
	switch {
	case resp.Err == nil:
		return http.StatusOK
	case errors.Is(resp.Err, session.ErrInput):
		return http.StatusBadRequest
	case errors.Is(resp.Err, engine.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("Server: failed to write response: %v", err)
	}
}
