// Package export renders a conversation's full message history to a
// markdown document. Exports are total, not incremental: the whole history
// is re-rendered on every call and the same filename is overwritten.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude-story/claude-story/internal/store"
)

const maxSlugLen = 50

// Markdown exports the conversation to the store's history directory and
// records the written path. It returns the filename, or "" when the
// conversation does not exist.
func Markdown(st *store.Store, conversationID string) (string, error) {
	c, err := st.Conversation(conversationID)
	if err != nil {
		return "", fmt.Errorf("get conversation: %w", err)
	}
	if c == nil {
		return "", nil
	}

	if err := os.MkdirAll(st.HistoryDir(), 0o755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}

	filename := Filename(c)
	path := filepath.Join(st.HistoryDir(), filename)

	if err := os.WriteFile(path, []byte(Render(c)), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	if err := st.SetExportPath(conversationID, path); err != nil {
		return "", fmt.Errorf("record export path: %w", err)
	}
	return filename, nil
}

// Filename derives the deterministic export name from the conversation's
// creation time (sortable, colon-free) and a slug of its title.
func Filename(c *store.Conversation) string {
	ts := strings.ReplaceAll(c.CreatedAt, ":", "-")
	return ts + "-" + Slug(c.Title) + ".md"
}

// Render produces the full markdown document.
func Render(c *store.Conversation) string {
	var b strings.Builder

	b.WriteString("<!-- Generated by Claude Story -->\n\n")
	b.WriteString(fmt.Sprintf("# %s (%s)\n\n", c.Title, headingTime(c.CreatedAt)))

	for _, m := range c.Messages {
		label := "Assistant"
		if m.Role == "user" {
			label = "User"
		}
		b.WriteString(fmt.Sprintf("_**%s**_\n\n%s\n\n---\n\n", label, m.Content))
	}

	return b.String()
}

// Slug lowercases the title, collapses non-alphanumeric runs to single
// dashes, trims leading/trailing dashes, and caps the length.
func Slug(title string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
		} else if !prevDash {
			b.WriteByte('-')
			prevDash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

func headingTime(createdAt string) string {
	t, err := time.Parse(store.TimeLayout, createdAt)
	if err != nil {
		return createdAt
	}
	return t.Format("2006-01-02 15:04")
}
