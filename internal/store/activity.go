package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agenthud/hud/internal/events"
	"github.com/agenthud/hud/internal/util"
)

// DefaultActivityPath returns the conventional file-activity.json location
// under root.
func DefaultActivityPath(root string) string {
	return filepath.Join(root, "file-activity.json")
}

// ActivityVersion is the schema version of file-activity.json.
const ActivityVersion = 1

// FileActivityEntry records one file touched by a tool invocation.
type FileActivityEntry struct {
	FilePath  string    `json:"file_path"`
	Tool      string    `json:"tool"`
	Timestamp time.Time `json:"timestamp"`
}

// fileActivitySession is the per-session payload in file-activity.json.
type fileActivitySession struct {
	CWD   string              `json:"cwd"`
	Files []FileActivityEntry `json:"files"`
}

type activityDocument struct {
	Version  int                             `json:"version"`
	Sessions map[string]*fileActivitySession `json:"sessions"`
}

// MaxFileActivityEntries bounds the files list per session to the 100
// newest-first entries, per the on-disk layout contract.
const MaxFileActivityEntries = 100

// ActivityLog is the file-activity.json sidecar: per-session CWD plus a
// bounded, newest-first list of files touched by {Edit, Write, Read,
// NotebookEdit} tool invocations.
type ActivityLog struct {
	mu   sync.Mutex
	path string
	doc  activityDocument
}

// LoadActivity reads path, or returns an empty log on any missing/malformed
// artifact — the same tolerant-load discipline as the main store.
func LoadActivity(path string) *ActivityLog {
	a := &ActivityLog{path: path, doc: activityDocument{Version: ActivityVersion, Sessions: map[string]*fileActivitySession{}}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			events.Warnf("activity: reading %s: %v", path, err)
		}
		return a
	}
	if len(data) == 0 {
		return a
	}

	var doc activityDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		events.Warnf("activity: malformed JSON in %s: %v", path, err)
		return a
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*fileActivitySession{}
	}
	a.doc = doc
	return a
}

func (a *ActivityLog) save() error {
	return util.AtomicWriteJSON(a.path, a.doc)
}

// Record prepends a file-activity entry for sessionID and truncates the
// list to the newest MaxFileActivityEntries.
func (a *ActivityLog) Record(sessionID, cwd, filePath, tool string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.doc.Sessions[sessionID]
	if !ok || s == nil {
		s = &fileActivitySession{}
		a.doc.Sessions[sessionID] = s
	}
	s.CWD = cwd
	entry := FileActivityEntry{FilePath: filePath, Tool: tool, Timestamp: at}
	s.Files = append([]FileActivityEntry{entry}, s.Files...)
	if len(s.Files) > MaxFileActivityEntries {
		s.Files = s.Files[:MaxFileActivityEntries]
	}
	return a.save()
}

// RemoveSession deletes sessionID's row entirely, used by the SessionEnd
// delete protocol.
func (a *ActivityLog) RemoveSession(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.doc.Sessions[sessionID]; !ok {
		return nil
	}
	delete(a.doc.Sessions, sessionID)
	return a.save()
}
