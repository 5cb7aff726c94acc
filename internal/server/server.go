// Package server exposes the transcription session to the web UI over HTTP
// and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/platform"
	"github.com/leonardotrapani/webwhisper/internal/session"
)

type Config struct {
	Host       string
	Port       int
	Autolaunch bool
}

func DefaultConfig() Config {
	return Config{Host: "127.0.0.1", Port: 7860}
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Transcriber runs one request to completion.
type Transcriber interface {
	Transcribe(ctx context.Context, req session.Request) session.Response
}

// Engine is the part of the resolver the API reports on and controls.
type Engine interface {
	Platform() platform.Category
	BackendName() string
	Current() (engine.Info, bool)
	Release() error
}

type Server struct {
	config   Config
	session  Transcriber
	engine   Engine
	defaults func() session.Request

	// one transcription at a time; later requests queue here
	mu sync.Mutex

	upgrader websocket.Upgrader
	http     *http.Server
}

type Option func(*Server)

// WithDefaults supplies the request defaults form fields are applied on top of.
func WithDefaults(fn func() session.Request) Option {
	return func(s *Server) { s.defaults = fn }
}

func New(config Config, t Transcriber, e Engine, opts ...Option) *Server {
	s := &Server{
		config:   config,
		session:  t,
		engine:   e,
		defaults: func() session.Request { return session.Request{} },
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHost,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/release", s.handleRelease)
	mux.HandleFunc("GET /ws/microphone", s.handleMicrophone)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/info", http.StatusFound)
	})
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := "http://" + ln.Addr().String()
	log.Printf("Server: listening on %s", url)
	if s.config.Autolaunch {
		if err := openBrowser(url); err != nil {
			log.Printf("Server: failed to open browser: %v", err)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// transcribe serializes access to the session. A client that disconnects
// mid-inference does not abort the call; the engine stays loaded.
func (s *Server) transcribe(ctx context.Context, req session.Request) session.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Transcribe(context.WithoutCancel(ctx), req)
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	host := r.Host
	for _, scheme := range []string{"http://", "https://"} {
		if origin == scheme+host {
			return true
		}
	}
	return false
}
