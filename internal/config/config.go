package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ClaudeRoot string `toml:"claude_root"`
	DataDir    string `toml:"data_dir"`
	SettleMs   int    `toml:"settle_ms"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ClaudeRoot: filepath.Join(home, ".claude", "projects"),
		DataDir:    filepath.Join(home, ".claude-story"),
		SettleMs:   200,
	}

	cfgPath := filepath.Join(home, ".claude-story", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	// expand ~ in paths
	cfg.ClaudeRoot = expandHome(cfg.ClaudeRoot, home)
	cfg.DataDir = expandHome(cfg.DataDir, home)

	return cfg, nil
}

// SettleDelay is the wait between a change notification and re-ingesting the
// file, so that in-progress writes can complete.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// PidPath is the daemon liveness record.
func (c *Config) PidPath() string {
	return filepath.Join(c.DataDir, "daemon.pid")
}

// LogPath receives the detached daemon's stdout and stderr.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "daemon.log")
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
