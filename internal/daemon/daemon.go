// Package daemon runs a long-lived webwhisper instance: the HTTP server plus
// the control socket used by `webwhisper toggle`, `status`, `release` and
// `stop`.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/bus"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/notify"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/session"
)

// Capturer records microphone audio until ctx is done.
type Capturer interface {
	Capture(ctx context.Context, d time.Duration) (*recording.Buffer, error)
}

// Transcriber runs one request end to end.
type Transcriber interface {
	Transcribe(ctx context.Context, req session.Request) session.Response
	State() session.State
}

// Engine is the part of the resolver the control socket exposes.
type Engine interface {
	Current() (engine.Info, bool)
	Release() error
}

// Copier receives the text of finished toggle recordings.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// Runner is a blocking service started next to the control socket,
// normally the HTTP server.
type Runner interface {
	Run(ctx context.Context) error
}

type Daemon struct {
	mu       sync.RWMutex
	notifier notify.Notifier
	session  Transcriber
	engine   Engine
	capturer Capturer
	defaults func() session.Request
	server   Runner
	copier   Copier

	ctx    context.Context
	cancel context.CancelFunc

	// active recording started by a toggle
	stopRec context.CancelFunc
	recDone chan struct{}
}

type Option func(*Daemon)

func WithNotifier(n notify.Notifier) Option {
	return func(d *Daemon) { d.notifier = n }
}

// WithServer runs r for the lifetime of the daemon.
func WithServer(r Runner) Option {
	return func(d *Daemon) { d.server = r }
}

// WithDefaults supplies the request template for toggled recordings.
func WithDefaults(f func() session.Request) Option {
	return func(d *Daemon) { d.defaults = f }
}

// WithCopier hands each toggled transcript to c.
func WithCopier(c Copier) Option {
	return func(d *Daemon) { d.copier = c }
}

func New(s Transcriber, e Engine, c Capturer, opts ...Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		notifier: notify.Nop{},
		session:  s,
		engine:   e,
		capturer: c,
		defaults: func() session.Request { return session.Request{} },
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rec reports whether a toggled recording is in progress.
func (d *Daemon) Rec() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stopRec != nil
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	serverErr := make(chan error, 1)
	if d.server != nil {
		go func() {
			err := d.server.Run(d.ctx)
			if err != nil {
				log.Printf("Server error: %v", err)
			}
			serverErr <- err
			d.cancel()
		}()
	} else {
		close(serverErr)
	}

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	var acceptErr error
	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() == nil {
				log.Printf("Accept error: %v", err)
				acceptErr = fmt.Errorf("accept failed: %w", err)
				d.cancel()
			}
			break
		}
		go d.handle(c)
	}

	log.Printf("Shutdown requested")
	d.abortRecording()
	if err := d.engine.Release(); err != nil {
		log.Printf("Release engine: %v", err)
	}
	if err := <-serverErr; err != nil {
		return err
	}
	return acceptErr
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		fmt.Fprintf(c, "STATUS recording=%t\n", d.toggle())
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", d.status())
	case bus.CmdRelease:
		if err := d.engine.Release(); err != nil {
			fmt.Fprintf(c, "ERR release: %v\n", err)
			return
		}
		fmt.Fprint(c, "OK released\n")
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

func (d *Daemon) status() string {
	engineDesc := "none"
	if info, ok := d.engine.Current(); ok {
		engineDesc = fmt.Sprintf("%s/%s@%s", info.Backend, info.Model, info.Device)
	}
	return fmt.Sprintf("status=%s recording=%t engine=%s", d.session.State(), d.Rec(), engineDesc)
}

// toggle starts a microphone recording, or stops the running one and hands
// it to the session. It returns whether a recording is now in progress.
func (d *Daemon) toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopRec != nil {
		d.stopRec()
		d.stopRec = nil
		go d.notifier.RecordingEnded()
		return false
	}

	ctx, cancel := context.WithCancel(d.ctx)
	done := make(chan struct{})
	d.stopRec = cancel
	d.recDone = done
	go d.notifier.RecordingStarted()
	go d.record(ctx, done)
	return true
}

func (d *Daemon) record(ctx context.Context, done chan struct{}) {
	defer close(done)

	buf, err := d.capturer.Capture(ctx, 0)

	d.mu.Lock()
	if d.recDone == done {
		d.stopRec = nil
	}
	d.mu.Unlock()

	if err != nil {
		log.Printf("Recording failed: %v", err)
		d.notifier.Error(fmt.Sprintf("Recording failed: %v", err))
		return
	}
	// shutdown while recording discards the clip
	if d.ctx.Err() != nil {
		return
	}

	req := d.defaults()
	req.Microphone = buf
	resp := d.session.Transcribe(d.ctx, req)
	if resp.Err != nil {
		if !errors.Is(resp.Err, context.Canceled) {
			log.Printf("Toggle transcription failed: %v", resp.Err)
		}
		return
	}
	log.Printf("Toggle transcription completed in %v", resp.Elapsed)

	if d.copier != nil && resp.Text != "" {
		if err := d.copier.Copy(d.ctx, resp.Text); err != nil {
			log.Printf("Clipboard copy failed: %v", err)
			d.notifier.Error(fmt.Sprintf("Clipboard copy failed: %v", err))
		}
	}
}

func (d *Daemon) abortRecording() {
	d.mu.Lock()
	stop, done := d.stopRec, d.recDone
	d.stopRec = nil
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
}
