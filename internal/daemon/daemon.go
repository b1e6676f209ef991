// Package daemon coordinates a single background watcher process across
// independent CLI invocations. The only shared state is a liveness record
// (a pid file at a well-known location) plus signal-0 process probing: a
// deliberately minimal protocol with a documented race window between two
// simultaneous starts.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNotRunning is returned by Stop when no live daemon is recorded.
var ErrNotRunning = errors.New("daemon is not running")

type Controller struct {
	PidPath string
	LogPath string
}

// Status reports the recorded daemon pid and whether that process is still
// alive. A record naming a dead process is stale: it is removed here so
// every probe self-heals the state.
func (c *Controller) Status() (int, bool) {
	pid, err := c.readRecord()
	if err != nil {
		return 0, false
	}
	if !alive(pid) {
		c.removeRecord()
		return 0, false
	}
	return pid, true
}

// Start launches the payload command as a detached process with stdout and
// stderr appended to the daemon log, records its pid, and returns without
// waiting. When a daemon is already running it reports that pid instead.
func (c *Controller) Start(exe string, args ...string) (pid int, already bool, err error) {
	if pid, running := c.Status(); running {
		return pid, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return 0, false, fmt.Errorf("create data dir: %w", err)
	}
	logf, err := os.OpenFile(c.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, false, fmt.Errorf("open daemon log: %w", err)
	}
	defer logf.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, false, fmt.Errorf("spawn daemon: %w", err)
	}
	pid = cmd.Process.Pid

	if err := c.writeRecord(pid); err != nil {
		return 0, false, fmt.Errorf("write liveness record: %w", err)
	}

	// detach: the child outlives this invocation
	_ = cmd.Process.Release()
	return pid, false, nil
}

// Stop signals the recorded daemon to terminate gracefully and removes the
// record. Signal delivery failure means the process is already gone; the
// stale record is removed anyway.
func (c *Controller) Stop() (int, error) {
	pid, err := c.readRecord()
	if err != nil {
		return 0, ErrNotRunning
	}

	_ = syscall.Kill(pid, syscall.SIGTERM)
	c.removeRecord()
	return pid, nil
}

// Cleanup removes the liveness record. The daemon payload calls this from
// its own shutdown handler in case the stopping invocation could not reach
// it directly.
func (c *Controller) Cleanup() {
	c.removeRecord()
}

func (c *Controller) readRecord() (int, error) {
	data, err := os.ReadFile(c.PidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed liveness record: %q", data)
	}
	return pid, nil
}

func (c *Controller) writeRecord(pid int) error {
	if err := os.MkdirAll(filepath.Dir(c.PidPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.PidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func (c *Controller) removeRecord() {
	_ = os.Remove(c.PidPath)
}

// alive probes a pid with signal 0. EPERM still means the process exists.
func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
