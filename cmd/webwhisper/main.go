package main

import (
	"fmt"
	"os"

	"github.com/leonardotrapani/webwhisper/internal/bus"
	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/leonardotrapani/webwhisper/internal/tui"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webwhisper",
	Short: "Local speech-to-text with a web UI",
	Long: `webwhisper transcribes audio files and microphone recordings with
Whisper models. It picks the fastest backend for the machine (MLX on Apple
Silicon, faster-whisper with CUDA elsewhere) and falls back to CPU when the
GPU cannot be used.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.AddCommand(
		transcribeCmd(),
		serveCmd(),
		infoCmd(),
		toggleCmd(),
		statusCmd(),
		releaseCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		modelCmd(),
	)
}

// loadConfig reads --config or the default config file.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newManager() (*config.Manager, error) {
	if configPath != "" {
		return config.NewManagerForFile(configPath)
	}
	return config.NewManager()
}

// busCmd builds a command that sends one control byte to a running serve.
func busCmd(use, short string, cmdByte byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(cmdByte)
			if err != nil {
				return fmt.Errorf("failed to reach webwhisper serve (is it running?): %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func toggleCmd() *cobra.Command {
	return busCmd("toggle", "Start or stop a microphone recording in the running server", bus.CmdToggle)
}

func statusCmd() *cobra.Command {
	return busCmd("status", "Show session state and the loaded engine", bus.CmdStatus)
}

func releaseCmd() *cobra.Command {
	return busCmd("release", "Unload the cached model to free memory", bus.CmdRelease)
}

func versionCmd() *cobra.Command {
	return busCmd("version", "Get protocol version", bus.CmdVersion)
}

func stopCmd() *cobra.Command {
	return busCmd("stop", "Stop the running server", bus.CmdQuit)
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration menu for webwhisper.
This covers:
- Backend, model tier and device
- Language and output format defaults
- Where transcripts are saved
- Server address and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	// Load existing config or create default
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if configPath != "" {
		err = config.SaveFile(result.Config, configPath)
	} else {
		err = config.Save(result.Config)
	}
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.StyleSuccess.Render("Configuration saved successfully!"))
	fmt.Println()
	showNextSteps(result.Config)
	return nil
}

func showNextSteps(cfg *config.Config) {
	running := false
	if _, err := bus.SendCommand(bus.CmdVersion); err == nil {
		running = true
	}

	fmt.Println("Next Steps:")
	if running {
		fmt.Println("1. A running server picks up engine and output changes automatically")
		fmt.Println("   (restart it to apply server address changes)")
	} else {
		fmt.Printf("1. Start the server: webwhisper serve (http://%s)\n", cfg.ToServerConfig().Addr())
	}
	fmt.Println("2. Or transcribe directly: webwhisper transcribe <audio-file>")
	fmt.Println()

	path := configPath
	if path == "" {
		path, _ = config.GetConfigPath()
	}
	fmt.Printf("Config file location: %s\n", path)
}
