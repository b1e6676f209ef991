// Package watch discovers conversation logs under the Claude projects root
// and keeps them ingested: a full synchronous scan at startup, then
// filesystem notifications with a short settle delay per changed file.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Ingest processes one conversation log. Errors are contained per file.
type Ingest func(path string) error

type Watcher struct {
	Root   string
	Settle time.Duration
	Ingest Ingest
	Log    *slog.Logger
}

func New(root string, settle time.Duration, ingest Ingest, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{Root: root, Settle: settle, Ingest: ingest, Log: log}
}

// Run scans existing logs, then watches for changes until ctx is cancelled.
// A missing root is a valid "nothing to watch yet" state, not an error.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := os.Stat(w.Root); err != nil {
		w.Log.Info("projects root not found, nothing to watch", "root", w.Root)
		return nil
	}

	w.scan()
	return w.watch(ctx)
}

// scan ingests every *.jsonl under each project directory, in discovery
// order. Per-file errors are logged and do not stop the scan.
func (w *Watcher) scan() {
	projectDirs, err := os.ReadDir(w.Root)
	if err != nil {
		w.Log.Warn("read projects root", "root", w.Root, "error", err)
		return
	}

	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		dir := filepath.Join(w.Root, pd.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			w.Log.Warn("read project dir", "dir", dir, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			path := filepath.Join(dir, f.Name())
			if err := w.Ingest(path); err != nil {
				w.Log.Warn("ingest failed", "file", path, "error", err)
			}
		}
	}
}

func (w *Watcher) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// fsnotify is not recursive: add the root and every subdirectory.
	if err := filepath.WalkDir(w.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	w.Log.Info("watching for conversations", "root", w.Root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			w.schedule(event.Name)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// watcher errors are non-fatal; keep watching
		}
	}
}

// schedule queues one ingestion of path after the settle delay. Every
// notification gets its own timer: redundant re-ingestions are safe because
// ingestion is idempotent, so no coalescing is attempted.
func (w *Watcher) schedule(path string) {
	time.AfterFunc(w.Settle, func() {
		if _, err := os.Stat(path); err != nil {
			return
		}
		if err := w.Ingest(path); err != nil {
			w.Log.Warn("ingest failed", "file", path, "error", err)
		}
	})
}
