package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/claude-story/claude-story/internal/watch"
)

// recorder is a thread-safe Ingest stub.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) ingest(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestRunMissingRootIsNotAnError(t *testing.T) {
	rec := &recorder{}
	w := watch.New(filepath.Join(t.TempDir(), "absent"), time.Millisecond, rec.ingest, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run with missing root: %v, want nil", err)
	}
	if len(rec.seen()) != 0 {
		t.Errorf("ingested %v with missing root", rec.seen())
	}
}

func TestInitialScanDiscoversLogs(t *testing.T) {
	root := t.TempDir()
	projA := filepath.Join(root, "proj-a")
	projB := filepath.Join(root, "proj-b")
	for _, d := range []string{projA, projB} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{
		filepath.Join(projA, "one.jsonl"),
		filepath.Join(projA, "two.jsonl"),
		filepath.Join(projB, "three.jsonl"),
		filepath.Join(projB, "ignored.txt"),
	} {
		if err := os.WriteFile(f, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recorder{}
	w := watch.New(root, time.Millisecond, rec.ingest, nil)

	// pre-cancelled context: the scan runs, the watch loop exits immediately
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := rec.seen()
	if len(seen) != 3 {
		t.Fatalf("ingested %d files %v, want 3", len(seen), seen)
	}
	for _, p := range seen {
		if filepath.Ext(p) != ".jsonl" {
			t.Errorf("ingested non-log file %s", p)
		}
	}
}

func TestChangeNotificationSchedulesIngestion(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	if err := os.Mkdir(proj, 0o755); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := watch.New(root, 10*time.Millisecond, rec.ingest, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register its directories
	time.Sleep(200 * time.Millisecond)

	logPath := filepath.Join(proj, "sess.jsonl")
	if err := os.WriteFile(logPath, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		found := false
		for _, p := range rec.seen() {
			if p == logPath {
				found = true
			}
		}
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("ingestion never scheduled for %s; saw %v", logPath, rec.seen())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestIngestErrorsDoNotStopScan(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "proj")
	if err := os.Mkdir(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"a.jsonl", "b.jsonl"} {
		if err := os.WriteFile(filepath.Join(proj, f), []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	calls := 0
	failing := func(path string) error {
		calls++
		return os.ErrInvalid
	}
	w := watch.New(root, time.Millisecond, failing, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("ingest called %d times, want 2 (errors must not stop the scan)", calls)
	}
}
