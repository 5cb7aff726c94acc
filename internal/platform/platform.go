package platform

import (
	"runtime"
	"strings"
	"sync"
)

// Category classifies the host by operating system and CPU architecture.
type Category int

const (
	Other Category = iota
	AppleSiliconMac
	IntelMac
	Windows
	Linux
)

func (c Category) String() string {
	switch c {
	case AppleSiliconMac:
		return "apple-silicon-mac"
	case IntelMac:
		return "intel-mac"
	case Windows:
		return "windows"
	case Linux:
		return "linux"
	default:
		return "other"
	}
}

// Accelerator names the compute device a backend should try first.
type Accelerator string

const (
	AcceleratorCPU   Accelerator = "cpu"
	AcceleratorCUDA  Accelerator = "cuda"
	AcceleratorMetal Accelerator = "metal"
)

// PreferredAccelerator returns the GPU class the platform suggests, or cpu.
func (c Category) PreferredAccelerator() Accelerator {
	switch c {
	case AppleSiliconMac:
		return AcceleratorMetal
	case Windows:
		return AcceleratorCUDA
	default:
		return AcceleratorCPU
	}
}

// Classify maps an OS name and machine string to a Category.
// Both arguments are matched case-insensitively, so "Darwin"/"darwin" and
// "AMD64"/"amd64" are equivalent. Unknown systems fall into Other.
func Classify(osName, machine string) Category {
	osName = strings.ToLower(strings.TrimSpace(osName))
	machine = strings.ToLower(strings.TrimSpace(machine))

	switch osName {
	case "darwin", "macos":
		if strings.HasPrefix(machine, "arm") || machine == "aarch64" {
			return AppleSiliconMac
		}
		return IntelMac
	case "windows":
		return Windows
	case "linux":
		return Linux
	}
	return Other
}

var (
	currentOnce sync.Once
	current     Category
)

// Current classifies the running process once and returns the cached value.
func Current() Category {
	currentOnce.Do(func() {
		current = Classify(runtime.GOOS, runtime.GOARCH)
	})
	return current
}
