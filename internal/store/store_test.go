package store_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/claude-story/claude-story/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		st, err := store.Open(dir)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		st.Close()
	}
}

func TestStartConversationDeactivatesPrevious(t *testing.T) {
	st := openStore(t)

	first, err := st.StartConversation("first", "s1")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	second, err := st.StartConversation("second", "s2")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}

	active, err := st.ActiveConversation()
	if err != nil {
		t.Fatalf("ActiveConversation: %v", err)
	}
	if active == nil || active.ID != second {
		t.Fatalf("active = %+v, want id %s", active, second)
	}

	prev, err := st.Conversation(first)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if prev.IsActive {
		t.Error("first conversation still active after starting second")
	}
}

// Property: after any sequence of StartConversation calls, exactly one
// conversation is active and it is the most recently started one.
func TestSingleActiveInvariant(t *testing.T) {
	base := t.TempDir()
	iter := 0

	rapid.Check(t, func(rt *rapid.T) {
		iter++
		st, err := store.Open(filepath.Join(base, fmt.Sprintf("p%d", iter)))
		if err != nil {
			rt.Fatalf("Open: %v", err)
		}
		defer st.Close()

		n := rapid.IntRange(1, 8).Draw(rt, "n")
		var lastID string
		for i := 0; i < n; i++ {
			id, err := st.StartConversation(
				rapid.StringN(1, 30, -1).Draw(rt, "title"),
				fmt.Sprintf("session-%d", i),
			)
			if err != nil {
				rt.Fatalf("StartConversation: %v", err)
			}
			lastID = id
		}

		convs, err := st.ListConversations()
		if err != nil {
			rt.Fatalf("ListConversations: %v", err)
		}
		activeCount := 0
		for _, c := range convs {
			if c.IsActive {
				activeCount++
				if c.ID != lastID {
					rt.Errorf("active conversation %s, want most recent %s", c.ID, lastID)
				}
			}
		}
		if activeCount != 1 {
			rt.Errorf("active count = %d, want 1", activeCount)
		}
	})
}

func TestConversationBySessionID(t *testing.T) {
	st := openStore(t)

	if c, err := st.ConversationBySessionID("missing"); err != nil || c != nil {
		t.Fatalf("absent lookup = (%+v, %v), want (nil, nil)", c, err)
	}

	id, err := st.StartConversation("t", "sess-1")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	c, err := st.ConversationBySessionID("sess-1")
	if err != nil {
		t.Fatalf("ConversationBySessionID: %v", err)
	}
	if c == nil || c.ID != id {
		t.Fatalf("got %+v, want id %s", c, id)
	}
}

func TestAddMessageDuplicateUUID(t *testing.T) {
	st := openStore(t)

	id, err := st.StartConversation("t", "s")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}

	ts := time.Now().UTC().Format(store.TimeLayout)
	if _, err := st.AddMessage(id, "user", "hello", ts, "uuid-1"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	_, err = st.AddMessage(id, "user", "hello again", ts, "uuid-1")
	if !errors.Is(err, store.ErrDuplicateMessage) {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicateMessage", err)
	}

	exists, err := st.MessageExists("uuid-1")
	if err != nil || !exists {
		t.Fatalf("MessageExists = (%v, %v), want (true, nil)", exists, err)
	}

	c, err := st.Conversation(id)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(c.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(c.Messages))
	}
}

func TestAddMessageBumpsUpdatedAt(t *testing.T) {
	st := openStore(t)

	id, err := st.StartConversation("t", "s")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	before, _ := st.Conversation(id)

	time.Sleep(1100 * time.Millisecond) // TimeLayout has second precision
	ts := time.Now().UTC().Format(store.TimeLayout)
	if _, err := st.AddMessage(id, "user", "hi", ts, "u1"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	after, _ := st.Conversation(id)
	if !(after.UpdatedAt > before.UpdatedAt) {
		t.Errorf("updated_at did not advance: %q -> %q", before.UpdatedAt, after.UpdatedAt)
	}
}

// Property: messages come back in non-decreasing created_at order regardless
// of insertion order, with ties broken by insertion order.
func TestMessagesChronological(t *testing.T) {
	base := t.TempDir()
	iter := 0

	rapid.Check(t, func(rt *rapid.T) {
		iter++
		st, err := store.Open(filepath.Join(base, fmt.Sprintf("p%d", iter)))
		if err != nil {
			rt.Fatalf("Open: %v", err)
		}
		defer st.Close()

		id, err := st.StartConversation("t", "s")
		if err != nil {
			rt.Fatalf("StartConversation: %v", err)
		}

		n := rapid.IntRange(1, 12).Draw(rt, "n")
		for i := 0; i < n; i++ {
			sec := rapid.Int64Range(0, 1_700_000_000).Draw(rt, "unix_sec")
			ts := time.Unix(sec, 0).UTC().Format(store.TimeLayout)
			if _, err := st.AddMessage(id, "user", "m", ts, fmt.Sprintf("u-%d", i)); err != nil {
				rt.Fatalf("AddMessage: %v", err)
			}
		}

		c, err := st.Conversation(id)
		if err != nil {
			rt.Fatalf("Conversation: %v", err)
		}
		if len(c.Messages) != n {
			rt.Fatalf("message count = %d, want %d", len(c.Messages), n)
		}
		if !sort.SliceIsSorted(c.Messages, func(i, j int) bool {
			if c.Messages[i].CreatedAt != c.Messages[j].CreatedAt {
				return c.Messages[i].CreatedAt < c.Messages[j].CreatedAt
			}
			return c.Messages[i].ID < c.Messages[j].ID
		}) {
			rt.Error("messages not in chronological order")
		}
	})
}

func TestSearchMessages(t *testing.T) {
	st := openStore(t)

	id, err := st.StartConversation("refactor plan", "s")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	ts := time.Now().UTC().Format(store.TimeLayout)
	if _, err := st.AddMessage(id, "user", "please refactor the parser", ts, "u1"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := st.AddMessage(id, "assistant", "done, tests pass", ts, "u2"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	results, err := st.SearchMessages("refactor", 10)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1", len(results))
	}
	if results[0].ConversationID != id || results[0].Role != "user" {
		t.Errorf("unexpected result: %+v", results[0])
	}

	if results, _ := st.SearchMessages("nosuchword", 10); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSetExportPath(t *testing.T) {
	st := openStore(t)

	id, err := st.StartConversation("t", "s")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if err := st.SetExportPath(id, "/tmp/out.md"); err != nil {
		t.Fatalf("SetExportPath: %v", err)
	}
	c, _ := st.Conversation(id)
	if c.ExportPath != "/tmp/out.md" {
		t.Errorf("export_path = %q, want /tmp/out.md", c.ExportPath)
	}
}
