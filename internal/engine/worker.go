package engine

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

//go:embed assets/whisper_worker.py
var workerScript []byte

// maxWorkerLine bounds one JSON line from the worker. Word-level results for
// long recordings are large.
const maxWorkerLine = 64 << 20

// closeGrace is how long Close waits for the worker to exit after EOF.
const closeGrace = 5 * time.Second

type workerRequest struct {
	AudioFile      string `json:"audio_file"`
	Language       string `json:"language,omitempty"`
	WordTimestamps bool   `json:"word_timestamps"`
}

type workerResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type workerLine struct {
	data []byte
	err  error
}

// workerConn speaks the JSON-lines protocol. A single goroutine reads
// stdout so that waits can be abandoned when the context ends.
type workerConn struct {
	stdin     io.WriteCloser
	lines     chan workerLine
	stop      chan struct{}
	closeOnce sync.Once
	broken    atomic.Bool
}

func newWorkerConn(stdin io.WriteCloser, stdout io.Reader) *workerConn {
	c := &workerConn{
		stdin: stdin,
		lines: make(chan workerLine, 1),
		stop:  make(chan struct{}),
	}
	go c.readLoop(stdout)
	return c
}

func (c *workerConn) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxWorkerLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			// stray library output
			continue
		}
		if !c.send(workerLine{data: append([]byte(nil), line...)}) {
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	if c.send(workerLine{err: err}) {
		close(c.lines)
	}
}

func (c *workerConn) send(l workerLine) bool {
	select {
	case c.lines <- l:
		return true
	case <-c.stop:
		return false
	}
}

func (c *workerConn) next(ctx context.Context) (workerResponse, error) {
	var resp workerResponse
	select {
	case <-ctx.Done():
		c.broken.Store(true)
		return resp, ctx.Err()
	case line, ok := <-c.lines:
		if !ok || line.err != nil {
			c.broken.Store(true)
			if errors.Is(line.err, io.EOF) || !ok {
				return resp, errors.New("worker exited unexpectedly")
			}
			return resp, fmt.Errorf("read worker output: %w", line.err)
		}
		if err := json.Unmarshal(line.data, &resp); err != nil {
			return resp, fmt.Errorf("parse worker response: %w (raw: %s)", err, truncate(string(line.data), 200))
		}
		return resp, nil
	}
}

// waitReady consumes the handshake line.
func (c *workerConn) waitReady(ctx context.Context) error {
	resp, err := c.next(ctx)
	if err != nil {
		return err
	}
	switch resp.Status {
	case "READY":
		return nil
	case "ERROR":
		return errors.New(resp.Error)
	}
	return fmt.Errorf("unexpected worker status %q", resp.Status)
}

func (c *workerConn) call(ctx context.Context, req workerRequest) (json.RawMessage, error) {
	if c.broken.Load() {
		return nil, errors.New("worker connection is broken")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		c.broken.Store(true)
		return nil, fmt.Errorf("send request: %w", err)
	}

	resp, err := c.next(ctx)
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case "OK":
		return resp.Result, nil
	case "ERROR":
		return nil, errors.New(resp.Error)
	}
	return nil, fmt.Errorf("unexpected worker status %q", resp.Status)
}

func (c *workerConn) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		err = c.stdin.Close()
	})
	return err
}

// worker is a long-lived python process holding one loaded model.
type worker struct {
	mu         sync.Mutex
	name       string
	cmd        *exec.Cmd
	conn       *workerConn
	stderr     *tailBuffer
	scriptPath string
	done       chan struct{}
}

type workerSpec struct {
	Name    string
	Python  string
	Backend string
	Load    LoadOptions
}

func (s workerSpec) args(scriptPath string) []string {
	args := []string{
		scriptPath,
		"--backend", s.Backend,
		"--model", s.Load.ModelID,
		"--device", string(s.Load.Device),
		"--compute-type", s.Load.ComputeType,
	}
	if s.Load.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(s.Load.Threads))
	}
	return args
}

// startWorker launches the helper and waits for its READY line. Model
// download and load happen before READY, so this may take minutes.
func startWorker(ctx context.Context, spec workerSpec) (*worker, error) {
	script, err := os.CreateTemp("", "webwhisper-worker-*.py")
	if err != nil {
		return nil, fmt.Errorf("create helper script: %w", err)
	}
	scriptPath := script.Name()
	if _, err := script.Write(workerScript); err != nil {
		script.Close()
		os.Remove(scriptPath)
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	script.Close()

	cmd := exec.Command(spec.Python, spec.args(scriptPath)...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1", "PYTHONIOENCODING=utf-8")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.Remove(scriptPath)
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(scriptPath)
		return nil, err
	}
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		os.Remove(scriptPath)
		return nil, fmt.Errorf("start %s worker: %w", spec.Name, err)
	}

	w := &worker{
		name:       spec.Name,
		cmd:        cmd,
		conn:       newWorkerConn(stdin, stdout),
		stderr:     stderr,
		scriptPath: scriptPath,
		done:       make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(w.done)
	}()

	if err := w.conn.waitReady(ctx); err != nil {
		w.kill()
		if tail := w.stderr.String(); tail != "" && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s worker: %w (stderr: %s)", spec.Name, err, tail)
		}
		return nil, fmt.Errorf("%s worker: %w", spec.Name, err)
	}

	log.Printf("%s: worker ready (pid %d, model %s, device %s)", spec.Name, cmd.Process.Pid, spec.Load.ModelID, spec.Load.Device)
	return w, nil
}

func (w *worker) transcribe(ctx context.Context, audioPath string, opts Options) (json.RawMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	result, err := w.conn.call(ctx, workerRequest{
		AudioFile:      audioPath,
		Language:       opts.Language,
		WordTimestamps: opts.WordTimestamps,
	})
	if err != nil {
		if w.conn.broken.Load() {
			// a half-read response cannot be resynchronized
			w.kill()
		}
		return nil, fmt.Errorf("%s: %w", w.name, err)
	}
	log.Printf("%s: transcribed %s in %v", w.name, audioPath, time.Since(start))
	return result, nil
}

// alive reports whether the process is running and the connection is in sync.
func (w *worker) alive() bool {
	if w.conn.broken.Load() {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// Close sends EOF and waits for the worker, killing it after a grace period.
func (w *worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.close()
	select {
	case <-w.done:
	case <-time.After(closeGrace):
		log.Printf("%s: worker did not exit, killing", w.name)
		w.kill()
	}
	if err := os.Remove(w.scriptPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (w *worker) kill() {
	_ = w.conn.close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	<-w.done
	os.Remove(w.scriptPath)
}

// tailBuffer keeps the last n bytes written, for error reports.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	n   int
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.n {
		t.buf = t.buf[len(t.buf)-t.n:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
