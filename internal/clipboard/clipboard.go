// Package clipboard puts finished transcripts on the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	sysclip "github.com/atotto/clipboard"
)

// Copier writes text to the clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

type Config struct {
	Timeout time.Duration // per wl-copy invocation
	Trim    bool          // strip surrounding whitespace before copying
}

func DefaultConfig() Config {
	return Config{
		Timeout: 3 * time.Second,
		Trim:    true,
	}
}

var ErrEmpty = errors.New("nothing to copy")

type copier struct {
	config Config

	// overridable in tests
	lookPath  func(string) (string, error)
	runWlCopy func(ctx context.Context, text string) error
	writeAll  func(string) error
}

func New(config Config) Copier {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &copier{
		config:    config,
		lookPath:  exec.LookPath,
		runWlCopy: wlCopy,
		writeAll:  sysclip.WriteAll,
	}
}

// Copy prefers wl-copy on Wayland sessions and falls back to the
// platform clipboard (pbcopy, xclip/xsel, or the Windows API).
func (c *copier) Copy(ctx context.Context, text string) error {
	if c.config.Trim {
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return ErrEmpty
	}

	if c.wayland() {
		wctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
		err := c.runWlCopy(wctx, text)
		if err == nil {
			return nil
		}
		log.Printf("Clipboard: wl-copy failed, trying fallback: %v", err)
	}

	if sysclip.Unsupported {
		return fmt.Errorf("no clipboard tool found (install wl-clipboard, xclip or xsel)")
	}
	if err := c.writeAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

func (c *copier) wayland() bool {
	if os.Getenv("WAYLAND_DISPLAY") == "" {
		return false
	}
	_, err := c.lookPath("wl-copy")
	return err == nil
}

func wlCopy(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}
