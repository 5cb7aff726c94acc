package platform

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/webwhisper/internal/deps"
)

// Describe returns the one-line backend summary shown in the UI header.
// On Windows and Linux it queries nvidia-smi; a missing or slow query just
// reports CPU processing.
func Describe(ctx context.Context, c Category) string {
	switch c {
	case AppleSiliconMac:
		return "Apple Silicon (MLX + Metal GPU)"
	case IntelMac:
		return "Intel macOS (faster-whisper CPU)"
	case Windows, Linux:
		gpu := deps.CheckNvidiaGPU(ctx)
		if gpu.Installed {
			return fmt.Sprintf("%s (faster-whisper + CUDA, %s)", osLabel(c), gpu.Version)
		}
		return fmt.Sprintf("%s (faster-whisper CPU, CUDA not available)", osLabel(c))
	default:
		return "Unknown platform (faster-whisper CPU)"
	}
}

func osLabel(c Category) string {
	switch c {
	case Windows:
		return "Windows"
	case Linux:
		return "Linux"
	}
	return c.String()
}
