// Package daemon spawns and runs the lock-holder: a detached child process
// whose sole job is to exist for as long as an editor/terminal session is
// open. Its PID, recorded in a lock directory by internal/lock, is what
// lets the resolver tell "agent alive but idle between hook events" apart
// from "agent crashed".
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/agenthud/hud/internal/lock"
)

// SpawnHolder launches a detached `hud lock-holder` child bound to path for
// sessionID and returns as soon as the child has started; it does not wait
// for the child to create its lock. The detached child outlives this
// process: on Unix it is moved to its own process group via setSysProcAttr
// so it is not killed when the parent terminal exits.
//
// The lock key is normally just path. When a live lock already claims path
// under a different session (two terminals opened against the same project
// directory), pid alone can't disambiguate the new holder's key before it
// has even started, so a random suffix takes its place instead: the same
// role lock.Create's docstring describes for "path+pid", generalized to a
// value SpawnHolder can generate up front.
func SpawnHolder(lockBase, path, sessionID string) (pid int, err error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("daemon: resolving executable: %w", err)
	}

	key := path
	if existing := lock.CheckExact(lockBase, path); existing != nil && existing.SessionID != sessionID {
		key = path + "#" + uuid.New().String()
	}

	cmd := exec.Command(exe, "lock-holder", "--path", path, "--key", key, "--session", sessionID, "--base", lockBase)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("daemon: starting lock-holder: %w", err)
	}
	// The parent does not wait on the child: Release lets the OS reap it
	// independently once it exits, rather than leaving a zombie tied to
	// this process's lifetime.
	_ = cmd.Process.Release()
	return cmd.Process.Pid, nil
}

// RunHolder is the body of the `hud lock-holder` subcommand: create the
// lock and then block until terminated, at which point the lock is
// released. It is meant to run as its own detached process, not to be
// called in-process by anything that expects to keep running afterward.
// key is the lock directory's content-addressed key; callers that don't
// need disambiguation pass path itself.
func RunHolder(ctx context.Context, base, key, path, sessionID string) error {
	pid := os.Getpid()
	started, _ := lock.ProcessStartTime(pid)

	created, err := lock.Create(base, key, path, sessionID, pid, procStartedPtr(started))
	if err != nil {
		return fmt.Errorf("daemon: creating lock: %w", err)
	}
	if !created {
		// Another holder is already live for this path; nothing left to do.
		return nil
	}
	defer lock.ReleaseBySession(base, sessionID, pid)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	<-ctx.Done()
	return nil
}

func procStartedPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
