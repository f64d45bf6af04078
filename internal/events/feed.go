// Package events provides the append-only lifecycle feed used for the
// "warn, never crash" discipline the hook processor and stores follow:
// recoverable errors are logged here instead of propagated.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of a logged feed entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelDebug Level = "debug"
)

// Entry is one line of the JSONL feed.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

var (
	mu       sync.Mutex
	feedPath string
)

// SetFeedPath configures where Warnf/Infof/Debugf append. Called once at
// startup from the resolved data root; before it is called, entries are
// written to stderr only.
func SetFeedPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	feedPath = path
}

func write(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	entry := Entry{Time: time.Now(), Level: level, Message: msg}

	mu.Lock()
	path := feedPath
	mu.Unlock()

	if path == "" {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
		return
	}

	if err := appendJSONL(path, entry); err != nil {
		// The feed itself is best-effort diagnostic plumbing; a failure to
		// append must never interrupt the caller.
		fmt.Fprintf(os.Stderr, "[%s] %s (feed write failed: %v)\n", level, msg, err)
	}
}

func appendJSONL(path string, entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

// Warnf logs a recoverable-error warning: malformed artifact, transient I/O,
// or anything else that must degrade to an empty/skipped result rather than
// fail the caller.
func Warnf(format string, args ...interface{}) { write(LevelWarn, format, args...) }

// Infof logs a normal lifecycle transition for debugging.
func Infof(format string, args ...interface{}) { write(LevelInfo, format, args...) }

// Debugf logs a low-priority diagnostic, e.g. a silently-skipped hook event.
func Debugf(format string, args ...interface{}) { write(LevelDebug, format, args...) }

// DefaultFeedPath returns the conventional hud-events.jsonl location under
// root.
func DefaultFeedPath(root string) string {
	return filepath.Join(root, "hud-events.jsonl")
}
