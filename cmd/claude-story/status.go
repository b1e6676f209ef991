package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/config"
	"github.com/claude-story/claude-story/internal/daemon"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and detected conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctl := &daemon.Controller{PidPath: cfg.PidPath(), LogPath: cfg.LogPath()}
			if pid, running := ctl.Status(); running {
				fmt.Printf("Daemon: running (pid %d)\n", pid)
			} else {
				fmt.Println("Daemon: stopped")
			}

			fmt.Println("\n=== Claude Code Detection ===")
			if _, err := os.Stat(cfg.ClaudeRoot); err != nil {
				fmt.Printf("  Projects root: %s (NOT FOUND)\n", cfg.ClaudeRoot)
				fmt.Println("  Make sure Claude Code is installed and has been used")
				return nil
			}
			fmt.Printf("  Projects root: %s\n", cfg.ClaudeRoot)
			fmt.Printf("  Conversation files: %d\n", countLogs(cfg.ClaudeRoot))
			return nil
		},
	}
}

func countLogs(root string) int {
	n := 0
	projectDirs, err := os.ReadDir(root)
	if err != nil {
		return 0
	}
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, pd.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".jsonl") {
				n++
			}
		}
	}
	return n
}
