package export_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude-story/claude-story/internal/export"
	"github.com/claude-story/claude-story/internal/store"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Fix the Parser", "fix-the-parser"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"Already-Slugged-123", "already-slugged-123"},
		{"!!!punctuation!!!", "punctuation"},
		{"C'est déjà fait", "c-est-d-j-fait"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, c := range cases {
		if got := export.Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFilenameIsSortableAndColonFree(t *testing.T) {
	c := &store.Conversation{
		Title:     "Fix the Parser",
		CreatedAt: "2026-03-01T09:30:05Z",
	}
	got := export.Filename(c)
	want := "2026-03-01T09-30-05Z-fix-the-parser.md"
	if got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
	if strings.Contains(got, ":") {
		t.Errorf("filename contains a colon: %q", got)
	}
}

func TestRenderDocumentStructure(t *testing.T) {
	c := &store.Conversation{
		Title:     "Quick Question",
		CreatedAt: "2026-03-01T09:30:05Z",
		Messages: []store.Message{
			{Role: "user", Content: "how do I do X?"},
			{Role: "assistant", Content: "like this"},
		},
	}
	got := export.Render(c)
	want := "<!-- Generated by Claude Story -->\n\n" +
		"# Quick Question (2026-03-01 09:30)\n\n" +
		"_**User**_\n\nhow do I do X?\n\n---\n\n" +
		"_**Assistant**_\n\nlike this\n\n---\n\n"
	if got != want {
		t.Errorf("Render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdownAbsentConversation(t *testing.T) {
	st := openStore(t)

	name, err := export.Markdown(st, "no-such-id")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if name != "" {
		t.Errorf("filename = %q, want empty for absent conversation", name)
	}
}

func TestMarkdownIdempotentAndComplete(t *testing.T) {
	st := openStore(t)

	id, err := st.StartConversation("My Session", "s1")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	ts := time.Now().UTC().Format(store.TimeLayout)
	if _, err := st.AddMessage(id, "user", "first", ts, "u1"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	name1, err := export.Markdown(st, id)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	path := filepath.Join(st.HistoryDir(), name1)
	data1, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	// re-export without new messages: byte-identical, same filename
	name2, err := export.Markdown(st, id)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if name2 != name1 {
		t.Fatalf("re-export filename %q, want %q", name2, name1)
	}
	data2, _ := os.ReadFile(path)
	if string(data1) != string(data2) {
		t.Error("re-export without new messages changed the document")
	}

	// export after a new message contains both, neither dropped
	if _, err := st.AddMessage(id, "assistant", "second", ts, "u2"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if _, err := export.Markdown(st, id); err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	data3, _ := os.ReadFile(path)
	for _, want := range []string{"first", "second"} {
		if !strings.Contains(string(data3), want) {
			t.Errorf("export missing message %q", want)
		}
	}
	if strings.Count(string(data3), "first") != 1 {
		t.Error("message duplicated in export")
	}

	// export_path recorded
	c, _ := st.Conversation(id)
	if c.ExportPath != path {
		t.Errorf("export_path = %q, want %q", c.ExportPath, path)
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
