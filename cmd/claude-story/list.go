package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/claude-story/claude-story/internal/render"
	"github.com/claude-story/claude-story/internal/tui"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Browse this project's conversations",
		Long:  `Lists the current project's conversations, newest first. Opens an interactive browser when stdout is a terminal; prints plain lines when piped.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openProjectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			convs, err := st.ListConversations()
			if err != nil {
				return err
			}

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				for _, c := range convs {
					active := " "
					if c.IsActive {
						active = "*"
					}
					fmt.Printf("%s\t%s\t%s\t%s\n", c.ID, c.UpdatedAt, active, c.Title)
				}
				return nil
			}

			selected, err := tui.RunList(convs)
			if err != nil || selected == nil {
				return err
			}

			full, err := st.Conversation(selected.ID)
			if err != nil {
				return err
			}
			fmt.Print(render.Conversation(full, render.Options{Width: termWidth()}))
			return nil
		},
	}
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
