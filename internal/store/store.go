package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// TimeLayout is the sortable UTC layout used for every timestamp column:
// lexicographic order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05Z"

// ArtifactDirName is the per-project directory holding the database and the
// markdown history exports.
const ArtifactDirName = ".claude-story"

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT '',
    updated_at  TEXT NOT NULL DEFAULT '',
    is_active   INTEGER NOT NULL DEFAULT 1,
    export_path TEXT NOT NULL DEFAULT '',
    session_id  TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS messages (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL REFERENCES conversations(id),
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    created_at      TEXT NOT NULL DEFAULT '',
    uuid            TEXT UNIQUE
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content=messages,
    content_rowid=id,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.id, old.content);
    INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// ErrDuplicateMessage reports that a message with the same source uuid has
// already been ingested. Callers treat it as "already seen", not a failure.
var ErrDuplicateMessage = errors.New("message uuid already exists")

type Conversation struct {
	ID         string
	Title      string
	SessionID  string
	CreatedAt  string
	UpdatedAt  string
	IsActive   bool
	ExportPath string
	Messages   []Message
}

type Message struct {
	ID             int64
	ConversationID string
	Role           string
	Content        string
	CreatedAt      string
	UUID           string
}

type Store struct {
	db          *sql.DB
	projectPath string
}

// Open opens (creating if needed) the conversation store for one project.
// Schema creation is idempotent and runs on every open.
func Open(projectPath string) (*Store, error) {
	dir := filepath.Join(projectPath, ArtifactDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "conversations.db"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, projectPath: projectPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ProjectPath is the project directory this store belongs to.
func (s *Store) ProjectPath() string {
	return s.projectPath
}

// HistoryDir is where markdown exports for this project are written.
func (s *Store) HistoryDir() string {
	return filepath.Join(s.projectPath, ArtifactDirName, "history")
}

// StartConversation deactivates any active conversation and inserts a new
// active one, in a single transaction so that at most one row is ever active.
func (s *Store) StartConversation(title, sessionID string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(TimeLayout)

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE conversations SET is_active = 0 WHERE is_active = 1"); err != nil {
		return "", err
	}
	_, err = tx.Exec(
		"INSERT INTO conversations (id, title, session_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, title, sessionID, now, now,
	)
	if err != nil {
		return "", err
	}
	return id, tx.Commit()
}

// ConversationBySessionID returns nil when no conversation has the session id.
func (s *Store) ConversationBySessionID(sessionID string) (*Conversation, error) {
	return s.scanConversation(
		"SELECT id, title, session_id, created_at, updated_at, is_active, export_path FROM conversations WHERE session_id = ?",
		sessionID,
	)
}

// ActiveConversation returns nil when no conversation is active.
func (s *Store) ActiveConversation() (*Conversation, error) {
	return s.scanConversation(
		"SELECT id, title, session_id, created_at, updated_at, is_active, export_path FROM conversations WHERE is_active = 1",
	)
}

// Conversation returns the conversation with its messages in chronological
// order (ties broken by insertion order), or nil when absent.
func (s *Store) Conversation(id string) (*Conversation, error) {
	c, err := s.scanConversation(
		"SELECT id, title, session_id, created_at, updated_at, is_active, export_path FROM conversations WHERE id = ?",
		id,
	)
	if err != nil || c == nil {
		return c, err
	}

	rows, err := s.db.Query(
		"SELECT id, conversation_id, role, content, created_at, uuid FROM messages WHERE conversation_id = ? ORDER BY created_at, id",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt, &m.UUID); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	return c, rows.Err()
}

// MessageExists is the idempotency check for re-ingestion.
func (s *Store) MessageExists(uuid string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM messages WHERE uuid = ?", uuid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddMessage inserts a message and bumps the conversation's updated_at.
// Inserting an already-seen uuid returns ErrDuplicateMessage.
func (s *Store) AddMessage(conversationID, role, content, createdAt, uuid string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, role, content, created_at, uuid) VALUES (?, ?, ?, ?, ?)",
		conversationID, role, content, createdAt, uuid,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateMessage
		}
		return 0, err
	}

	now := time.Now().UTC().Format(TimeLayout)
	if _, err := s.db.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", now, conversationID); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetExportPath records the last written export location.
func (s *Store) SetExportPath(conversationID, path string) error {
	_, err := s.db.Exec("UPDATE conversations SET export_path = ? WHERE id = ?", path, conversationID)
	return err
}

// ListConversations returns all conversations, most recently updated first,
// without their messages.
func (s *Store) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(
		"SELECT id, title, session_id, created_at, updated_at, is_active, export_path FROM conversations ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		var sessionID sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &sessionID, &c.CreatedAt, &c.UpdatedAt, &c.IsActive, &c.ExportPath); err != nil {
			return nil, err
		}
		c.SessionID = sessionID.String
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *Store) ConversationCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

func (s *Store) MessageCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

type SearchResult struct {
	ConversationID string
	Title          string
	Role           string
	CreatedAt      string
	Snippet        string
}

// SearchMessages runs an FTS5 match over message content.
func (s *Store) SearchMessages(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT m.conversation_id, c.title, m.role, m.created_at,
		       snippet(messages_fts, 0, '>>>', '<<<', '...', 16)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?
		ORDER BY m.created_at DESC
		LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ConversationID, &r.Title, &r.Role, &r.CreatedAt, &r.Snippet); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) scanConversation(query string, args ...any) (*Conversation, error) {
	var c Conversation
	var sessionID sql.NullString
	err := s.db.QueryRow(query, args...).Scan(
		&c.ID, &c.Title, &sessionID, &c.CreatedAt, &c.UpdatedAt, &c.IsActive, &c.ExportPath,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.SessionID = sessionID.String
	return &c, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
