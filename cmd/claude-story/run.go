package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/config"
	"github.com/claude-story/claude-story/internal/daemon"
	"github.com/claude-story/claude-story/internal/ingest"
	"github.com/claude-story/claude-story/internal/watch"
)

// runCmd is the detached daemon payload launched by `start`. Its stdout and
// stderr are already redirected to the daemon log by the controller.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "run",
		Short:  "Run the watcher in the foreground (internal daemon entry point)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(log)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}

			ctl := &daemon.Controller{PidPath: cfg.PidPath(), LogPath: cfg.LogPath()}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// belt and suspenders: remove our own liveness record on the way
			// out, in case `stop` could not reach this process
			defer ctl.Cleanup()

			log.Info("Claude Story daemon starting", "root", cfg.ClaudeRoot)

			in := ingest.New(home, log)
			w := watch.New(cfg.ClaudeRoot, cfg.SettleDelay(), in.File, log)
			if err := w.Run(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			log.Info("Claude Story daemon stopping")
			return nil
		},
	}
}
