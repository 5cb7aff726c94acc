package deps

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CheckTimeout bounds every capability check. A check that runs out of time
// reports the dependency as not installed.
const CheckTimeout = 10 * time.Second

// EnvPython overrides the interpreter used for the python backends.
const EnvPython = "WEBWHISPER_PYTHON"

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// CheckWhisperCli checks if whisper-cli is installed and returns its status
func CheckWhisperCli(ctx context.Context) Status {
	return checkBinary(ctx, "whisper-cli", "--version")
}

// CheckFFmpeg checks if ffmpeg is installed and returns its status
func CheckFFmpeg(ctx context.Context) Status {
	return checkBinary(ctx, "ffmpeg", "-version")
}

// CheckNvidiaGPU reports whether nvidia-smi can see a GPU. Version holds the
// first GPU name.
func CheckNvidiaGPU(ctx context.Context) Status {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return Status{Installed: false}
	}

	out, err := run(ctx, path, "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return Status{Installed: false}
	}
	name := firstLine(out)
	if name == "" {
		return Status{Installed: false}
	}
	return Status{Installed: true, Path: path, Version: name}
}

// FindPython returns the interpreter to use: $WEBWHISPER_PYTHON, the configured
// path, then python3 and python from PATH. Empty when none is found.
func FindPython(configured string) string {
	candidates := []string{os.Getenv(EnvPython), configured, "python3", "python"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	return ""
}

// CheckPythonModule checks whether module imports under the given interpreter.
// Version holds the module's __version__ when it exposes one.
func CheckPythonModule(ctx context.Context, python, module string) Status {
	if python == "" {
		return Status{Installed: false}
	}

	script := "import importlib; m = importlib.import_module('" + module + "'); print(getattr(m, '__version__', ''))"
	out, err := run(ctx, python, "-c", script)
	if err != nil {
		return Status{Installed: false}
	}
	return Status{Installed: true, Path: python, Version: firstLine(out)}
}

func checkBinary(ctx context.Context, name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	// version is best-effort, the binary is usable without it
	if out, err := run(ctx, path, versionFlag); err == nil {
		status.Version = firstLine(out)
	}

	return status
}

func run(ctx context.Context, name string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
