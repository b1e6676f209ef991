package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/config"
	"github.com/claude-story/claude-story/internal/daemon"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the monitoring daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}

			ctl := &daemon.Controller{PidPath: cfg.PidPath(), LogPath: cfg.LogPath()}
			pid, already, err := ctl.Start(exe, "run")
			if err != nil {
				return err
			}
			if already {
				fmt.Printf("Claude Story is already running (pid %d)\n", pid)
				return nil
			}

			fmt.Printf("Claude Story daemon started (pid %d)\n", pid)
			fmt.Printf("Watching: %s\n", cfg.ClaudeRoot)
			fmt.Printf("Logs: %s\n", cfg.LogPath())
			return nil
		},
	}
}
