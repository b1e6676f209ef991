package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/config"
	"github.com/claude-story/claude-story/internal/daemon"
	"github.com/claude-story/claude-story/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify the projects root, daemon, and project store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Roots ===")
			checkDir("Claude projects", cfg.ClaudeRoot)
			checkDir("Data dir", cfg.DataDir)

			fmt.Println("\n=== File Scan ===")
			fmt.Printf("  Conversation files: %d\n", countLogs(cfg.ClaudeRoot))

			fmt.Println("\n=== Daemon ===")
			ctl := &daemon.Controller{PidPath: cfg.PidPath(), LogPath: cfg.LogPath()}
			if pid, running := ctl.Status(); running {
				fmt.Printf("  Status: running (pid %d)\n", pid)
			} else {
				fmt.Println("  Status: stopped")
			}
			fmt.Printf("  Log: %s\n", cfg.LogPath())

			fmt.Println("\n=== Project Store ===")
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			dbPath := filepath.Join(cwd, store.ArtifactDirName, "conversations.db")
			fmt.Printf("  Path: %s\n", dbPath)
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (no conversations ingested for this project yet)")
				return nil
			}

			st, err := store.Open(cwd)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			convCount, err := st.ConversationCount()
			if err != nil {
				return fmt.Errorf("count conversations: %w", err)
			}
			msgCount, err := st.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}

			fmt.Printf("  Conversations: %d\n", convCount)
			fmt.Printf("  Messages:      %d\n", msgCount)

			if active, err := st.ActiveConversation(); err == nil && active != nil {
				fmt.Printf("  Active: %s\n", active.Title)
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
