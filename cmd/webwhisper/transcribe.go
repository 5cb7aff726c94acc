package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/clipboard"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/language"
	"github.com/leonardotrapani/webwhisper/internal/notify"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/session"
	"github.com/leonardotrapani/webwhisper/internal/transcript"
	"github.com/leonardotrapani/webwhisper/internal/tui"
	"github.com/spf13/cobra"
)

// newResolver builds the engine resolver for a CLI run.
var newResolver = func(c engine.Config) *engine.Resolver {
	return engine.NewResolver(c)
}

type transcribeFlags struct {
	language       string
	tier           string
	format         string
	wordTimestamps bool
	noSave         bool
	output         string
	mic            bool
	duration       time.Duration
	copy           bool
}

func transcribeCmd() *cobra.Command {
	var f transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe [audio-file]",
		Short: "Transcribe an audio file or a microphone recording",
		Example: `  webwhisper transcribe meeting.mp3
  webwhisper transcribe --tier fast --format srt talk.wav
  webwhisper transcribe --mic --duration 30s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runTranscribe(cmd, path, f)
		},
	}

	cmd.Flags().StringVarP(&f.language, "language", "l", "", "language code or auto (default from config)")
	cmd.Flags().StringVarP(&f.tier, "tier", "t", "", "model tier: high-accuracy, fast, balanced, fastest")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: text, json or srt (default text)")
	cmd.Flags().BoolVarP(&f.wordTimestamps, "word-timestamps", "w", false, "include per-word timings")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "do not write transcript files")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output folder (default from config)")
	cmd.Flags().BoolVar(&f.mic, "mic", false, "record from the microphone instead of reading a file")
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 0, "microphone recording length (ctrl+c stops early)")
	cmd.Flags().BoolVarP(&f.copy, "copy", "c", false, "copy the transcript text to the clipboard")

	return cmd
}

func runTranscribe(cmd *cobra.Command, path string, f transcribeFlags) error {
	if path == "" && !f.mic {
		return fmt.Errorf("give an audio file or use --mic")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if f.output != "" {
		cfg.Output.Root = f.output
	}

	req := cfg.DefaultRequest()
	req.AudioPath = path
	if cmd.Flags().Changed("language") {
		if !language.IsValidCode(f.language) {
			return fmt.Errorf("unsupported language: %s", f.language)
		}
		req.Language = f.language
	}
	if cmd.Flags().Changed("tier") {
		req.Tier = engine.ParseTier(f.tier)
	}
	if cmd.Flags().Changed("format") {
		kind, err := transcript.ParseKind(f.format)
		if err != nil {
			return err
		}
		req.OutputFormat = kind
	}
	if cmd.Flags().Changed("word-timestamps") {
		req.WordTimestamps = f.wordTimestamps
	}
	if f.noSave {
		no := false
		req.Save = &no
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := cfg.ToNotifier()

	if f.mic {
		if path != "" {
			return fmt.Errorf("use either an audio file or --mic, not both")
		}
		buf, err := recordMicrophone(ctx, recording.NewRecorder(cfg.ToRecordingConfig()), f.duration, notifier)
		if err != nil {
			return err
		}
		req.Microphone = buf
		// ctrl+c ended the recording; the transcription gets a fresh context
		stop()
		ctx, stop = signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	resolver := newResolver(cfg.ToResolverConfig())
	defer resolver.Release()
	s := session.New(cfg.ToSessionConfig(), resolver, session.WithNotifier(notifier))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var resp session.Response
	title := fmt.Sprintf("Transcribing with %s (%s)...", resolver.BackendName(), req.Tier.Label())
	if err := tui.RunWithSpinner(title, cancel, func() {
		resp = s.Transcribe(runCtx, req)
	}); err != nil {
		return err
	}

	if resp.Info != "" {
		fmt.Fprintln(os.Stderr, tui.StyleMuted.Render(resp.Info))
	}
	if resp.Err != nil {
		// a failed inference is reported as the result; missing input and
		// engine construction failures exit 1
		if errors.Is(resp.Err, session.ErrTranscription) {
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		}
		return resp.Err
	}
	for _, p := range resp.SavedFiles {
		fmt.Fprintln(os.Stderr, tui.StyleSuccess.Render("Saved "+p))
	}

	if f.copy {
		if err := clipboard.New(clipboard.DefaultConfig()).Copy(ctx, resp.Text); err != nil {
			fmt.Fprintln(os.Stderr, tui.StyleWarning.Render("Clipboard: "+err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, tui.StyleSuccess.Render("Copied to clipboard"))
		}
	}

	// --format json|srt prints the aligned output, text is the default
	if cmd.Flags().Changed("format") && req.OutputFormat != transcript.KindText {
		fmt.Fprintln(cmd.OutOrStdout(), resp.Formatted)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
	}
	return nil
}

func recordMicrophone(ctx context.Context, rec *recording.Recorder, d time.Duration, notifier notify.Notifier) (*recording.Buffer, error) {
	limit := "ctrl+c to stop"
	if d > 0 {
		limit = fmt.Sprintf("up to %s, ctrl+c to stop", d)
	}
	fmt.Fprintln(os.Stderr, tui.StyleHighlight.Render("Recording ("+limit+")..."))

	notifier.RecordingStarted()
	buf, err := rec.Capture(ctx, d)
	notifier.RecordingEnded()
	if err != nil {
		return nil, fmt.Errorf("recording failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Captured %s of audio\n", buf.Duration().Round(100*time.Millisecond))
	return buf, nil
}
