package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/claude-story/claude-story/internal/store"
)

// record is one JSONL line of a Claude Code conversation log.
type record struct {
	Type      string          `json:"type"`
	Cwd       string          `json:"cwd"`
	SessionID string          `json:"sessionId"`
	Summary   string          `json:"summary"` // for type="summary" records
	Timestamp string          `json:"timestamp"`
	UUID      string          `json:"uuid"`
	Message   json.RawMessage `json:"message"`
}

type recordMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// extractContent normalizes a message body to plain text. A string body is
// used verbatim; an array of typed blocks keeps the text-typed ones joined by
// a blank line; anything else is serialized raw so content is never dropped
// silently.
func extractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	// try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	// try array of content blocks
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n\n")
	}

	return string(raw)
}

// parseTimestamp normalizes a source timestamp to the store layout.
// Unparseable values come back as the zero time's rendering, which still
// sorts deterministically.
func parseTimestamp(s string) string {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(store.TimeLayout)
		}
	}
	return time.Time{}.UTC().Format(store.TimeLayout)
}
