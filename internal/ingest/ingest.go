// Package ingest reads one Claude Code JSONL conversation log and persists
// its messages into the owning project's conversation store. Ingestion is
// idempotent: the whole file is re-read on every call and already-seen
// message uuids are skipped, so re-processing the same log any number of
// times yields the same store state.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude-story/claude-story/internal/export"
	"github.com/claude-story/claude-story/internal/store"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

const defaultTitle = "Claude Conversation"

const whatIsThis = `# Claude Story Artifacts Directory

This directory is automatically created and maintained by Claude Story to preserve your AI chat history.

## What's Here?

- ` + "`.claude-story/conversations.db`" + `: SQLite database storing all conversations
- ` + "`.claude-story/history/`" + `: Markdown exports of conversations
- Each conversation has a unique ID and is auto-saved

## Usage

Claude Story runs automatically in the background. Your conversations are saved here automatically.

## Integration

Any MCP server can index the markdown files in history/ for cross-project search.
`

// Ingestor processes conversation logs. Home is the user home directory:
// logs whose working directory equals it carry no real project context and
// are skipped.
type Ingestor struct {
	Home string
	Log  *slog.Logger
}

func New(home string, log *slog.Logger) *Ingestor {
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{Home: home, Log: log}
}

// File ingests the full current content of one conversation log. A missing,
// empty, or project-less file is a no-op. Any other failure aborts only this
// file's ingestion.
func (in *Ingestor) File(path string) error {
	records, err := readRecords(path)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	cwd := firstCwd(records)
	if cwd == "" || cwd == in.Home {
		// not attributable to a project
		return nil
	}

	if err := in.ensureArtifacts(cwd); err != nil {
		return err
	}

	sessionID := records[0].SessionID
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	title := defaultTitle
	if records[0].Type == "summary" && records[0].Summary != "" {
		title = records[0].Summary
	}

	st, err := store.Open(cwd)
	if err != nil {
		return fmt.Errorf("open store for %s: %w", cwd, err)
	}
	defer st.Close()

	conv, err := st.ConversationBySessionID(sessionID)
	if err != nil {
		return fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	if conv == nil {
		id, err := st.StartConversation(title, sessionID)
		if err != nil {
			return fmt.Errorf("start conversation: %w", err)
		}
		conv, err = st.Conversation(id)
		if err != nil {
			return err
		}
	}

	inserted := 0
	for _, rec := range records {
		if rec.Type != "user" && rec.Type != "assistant" {
			continue
		}

		var msg recordMessage
		if len(rec.Message) > 0 {
			if err := json.Unmarshal(rec.Message, &msg); err != nil {
				return fmt.Errorf("parse message %s: %w", rec.UUID, err)
			}
		}

		exists, err := st.MessageExists(rec.UUID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		content := extractContent(msg.Content)
		_, err = st.AddMessage(conv.ID, rec.Type, content, parseTimestamp(rec.Timestamp), rec.UUID)
		if err == store.ErrDuplicateMessage {
			// lost a race with a concurrent ingestion of the same log
			continue
		}
		if err != nil {
			return fmt.Errorf("add message %s: %w", rec.UUID, err)
		}
		inserted++
	}

	if inserted > 0 {
		if _, err := export.Markdown(st, conv.ID); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		in.Log.Info("updated conversation", "title", conv.Title, "new_messages", inserted)
	}
	return nil
}

// readRecords parses every non-blank line. A missing file reads as empty;
// a malformed line is an error that abandons the whole file.
func readRecords(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []record
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// firstCwd returns the working directory of the first record that declares one.
func firstCwd(records []record) string {
	for _, rec := range records {
		if rec.Cwd != "" {
			return rec.Cwd
		}
	}
	return ""
}

// ensureArtifacts creates the project's artifact directory. First creation
// also writes companion documentation and registers the directory in the
// project's .gitignore; both steps are idempotent.
func (in *Ingestor) ensureArtifacts(projectPath string) error {
	dir := filepath.Join(projectPath, store.ArtifactDirName)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".what-is-this.md"), []byte(whatIsThis), 0o644); err != nil {
		return fmt.Errorf("write scaffolding: %w", err)
	}
	if err := addToGitignore(projectPath); err != nil {
		// not worth failing ingestion over
		in.Log.Warn("could not update .gitignore", "project", projectPath, "error", err)
	}
	return nil
}

// addToGitignore appends the artifact directory to the project's .gitignore,
// once.
func addToGitignore(projectPath string) error {
	gitignorePath := filepath.Join(projectPath, ".gitignore")

	existing, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(existing), store.ArtifactDirName) {
		return nil
	}

	entry := store.ArtifactDirName + "/\n"
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		entry = "\n" + entry
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
