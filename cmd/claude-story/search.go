package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claude-story/claude-story/internal/store"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeRole(role string) string {
	switch role {
	case "user":
		return sColorBlue + role + sColorReset
	case "assistant":
		return sColorGreen + role + sColorReset
	default:
		return role
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across this project's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openProjectStore()
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := st.SearchMessages(args[0], limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				cmd.PrintErrln("No results found.")
				return nil
			}

			printResults(results)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	return cmd
}

func printResults(results []store.SearchResult) {
	for _, r := range results {
		snippet := strings.ReplaceAll(r.Snippet, "\t", " ")
		snippet = strings.ReplaceAll(snippet, "\n", " ")
		title := strings.ReplaceAll(r.Title, "\n", " ")
		// conversation id stays plain in the first field for scripting
		fmt.Printf("%s\t%s%s%s\t%s\t%s\t%s\n",
			r.ConversationID,
			sColorDim, r.CreatedAt, sColorReset,
			colorizeRole(r.Role),
			title,
			colorizeSnippet(snippet),
		)
	}
}
