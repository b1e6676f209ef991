package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/render"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openProjectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := st.Conversation(args[0])
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("conversation not found: %s", args[0])
			}

			fmt.Print(render.Conversation(c, render.Options{Width: termWidth()}))
			return nil
		},
	}
}
