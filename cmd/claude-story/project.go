package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude-story/claude-story/internal/store"
)

// openProjectStore opens the conversation store of the current working
// directory. Read commands must not scaffold an artifact directory as a side
// effect, so a project without one is an error here.
func openProjectStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(cwd, store.ArtifactDirName)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("no conversations recorded for %s (is the daemon running?)", cwd)
	}

	return store.Open(cwd)
}
