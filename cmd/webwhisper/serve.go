package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/leonardotrapani/webwhisper/internal/clipboard"
	"github.com/leonardotrapani/webwhisper/internal/config"
	"github.com/leonardotrapani/webwhisper/internal/daemon"
	"github.com/leonardotrapani/webwhisper/internal/engine"
	"github.com/leonardotrapani/webwhisper/internal/recording"
	"github.com/leonardotrapani/webwhisper/internal/server"
	"github.com/leonardotrapani/webwhisper/internal/session"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var host string
	var port int
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and control socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := m.GetConfig()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			serverConfig := cfg.ToServerConfig()
			if cmd.Flags().Changed("host") {
				serverConfig.Host = host
			}
			if cmd.Flags().Changed("port") {
				serverConfig.Port = port
			}
			if cmd.Flags().Changed("open") {
				serverConfig.Autolaunch = open
			}
			return runServe(m, serverConfig)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "open the browser once listening")

	return cmd
}

func runServe(m *config.Manager, serverConfig server.Config) error {
	cfg := m.GetConfig()

	resolver := engine.NewResolver(cfg.ToResolverConfig())
	notifier := cfg.ToNotifier()
	sess := session.New(cfg.ToSessionConfig(), resolver, session.WithNotifier(notifier))
	defaults := func() session.Request { return m.GetConfig().DefaultRequest() }

	srv := server.New(serverConfig, sess, resolver, server.WithDefaults(defaults))
	d := daemon.New(sess, resolver, managedCapturer{m},
		daemon.WithServer(srv),
		daemon.WithNotifier(notifier),
		daemon.WithDefaults(defaults),
		daemon.WithCopier(managedCopier{m: m, c: clipboard.New(clipboard.DefaultConfig())}),
	)

	initial := cfg.ToServerConfig()
	m.OnChange(func(c *config.Config) {
		if err := resolver.Reconfigure(c.ToResolverConfig()); err != nil {
			log.Printf("Config: reconfigure engine: %v", err)
		}
		sess.Reconfigure(c.ToSessionConfig())
		if c.ToServerConfig() != initial {
			log.Printf("Config: server address changes apply after restart")
		}
	})

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(watchCtx); err != nil {
		log.Printf("Config: hot reload disabled: %v", err)
	}
	defer m.Stop()

	log.Printf("Serving on http://%s (platform %s, backend %s)", serverConfig.Addr(), resolver.Platform(), resolver.BackendName())
	return d.Run()
}

// managedCapturer records with the current recording settings so config
// edits apply to the next toggle.
type managedCapturer struct {
	m *config.Manager
}

func (c managedCapturer) Capture(ctx context.Context, d time.Duration) (*recording.Buffer, error) {
	return recording.NewRecorder(c.m.GetConfig().ToRecordingConfig()).Capture(ctx, d)
}

// managedCopier copies only while output.copy_to_clipboard is set.
type managedCopier struct {
	m *config.Manager
	c clipboard.Copier
}

func (c managedCopier) Copy(ctx context.Context, text string) error {
	if !c.m.GetConfig().Output.Clipboard {
		return nil
	}
	return c.c.Copy(ctx, text)
}
