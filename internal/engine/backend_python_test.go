package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/deps"
	"github.com/leonardotrapani/webwhisper/internal/platform"
)

// fakeInterpreter answers import checks and speaks the worker protocol.
// Requests for files named slow.wav take five seconds.
const fakeInterpreter = `#!/bin/sh
if [ "$1" = "-c" ]; then
	exit 0
fi
echo '{"status":"READY"}'
while IFS= read -r line; do
	case "$line" in
	*slow.wav*) sleep 5 >/dev/null 2>&1 </dev/null ;;
	esac
	echo '{"status":"OK","result":{"text":"hi","segments":[]}}'
done
`

func newFakeInterpreter(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "python3")
	if err := os.WriteFile(path, []byte(fakeInterpreter), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(deps.EnvPython, path)
	return path
}

func TestPythonWorkerAbandonedCallReloads(t *testing.T) {
	python := newFakeInterpreter(t)
	r := NewResolver(Config{Backend: BackendFasterWhisper, Device: "cpu", Python: python}, WithPlatform(platform.Linux))
	t.Cleanup(func() { r.Release() })

	ctx := context.Background()
	h, err := r.Resolve(ctx, Fast)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	raw, err := h.Transcribe(ctx, "first.wav", Options{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if raw.Text() != "hi" {
		t.Errorf("Text() = %q, want hi", raw.Text())
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := h.Transcribe(short, "slow.wav", Options{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Transcribe() with deadline error = %v, want DeadlineExceeded", err)
	}

	h2, err := r.Resolve(ctx, Fast)
	if err != nil {
		t.Fatalf("Resolve() after abandoned call error = %v", err)
	}
	if h2 == h {
		t.Fatal("resolver returned the handle whose worker was killed")
	}
	if _, err := h2.Transcribe(ctx, "again.wav", Options{}); err != nil {
		t.Errorf("Transcribe() on reloaded worker error = %v", err)
	}
}
