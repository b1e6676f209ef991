package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/config"
	"github.com/claude-story/claude-story/internal/daemon"
)

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the monitoring daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctl := &daemon.Controller{PidPath: cfg.PidPath(), LogPath: cfg.LogPath()}
			pid, err := ctl.Stop()
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Println("Claude Story is not running")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("Claude Story daemon stopped (pid %d)\n", pid)
			return nil
		},
	}
}
