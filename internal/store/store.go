package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/agenthud/hud/internal/events"
	"github.com/agenthud/hud/internal/util"
)

// Version is the only schema version this store understands. Any other
// value found on disk, or malformed JSON, is treated as a missing store:
// empty, warn, never crash. See spec §4.2 and §7.
const Version = 3

// document is the on-disk shape of sessions.json.
type document struct {
	Version  int                       `json:"version"`
	Sessions map[string]*SessionRecord `json:"sessions"`
}

// Store is the in-memory, file-backed session record store. It performs
// read-modify-write over the whole document: the document is read once by
// Load, and each mutation rewrites all of it. Each mutation tries an
// advisory flock first, but does not wait for it and does not re-read the
// file under it, so concurrent writers in other processes still overwrite
// each other's changes (last-writer-wins at file granularity).
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Load reads path and returns a Store. A missing file, an empty file,
// malformed JSON, or an unrecognized version all yield an empty store with a
// warning logged — never an error. This mirrors the "missing/malformed
// artifact" categories in spec §7.
func Load(path string) *Store {
	s := &Store{path: path, doc: document{Version: Version, Sessions: map[string]*SessionRecord{}}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			events.Warnf("store: reading %s: %v", path, err)
		}
		return s
	}
	if len(data) == 0 {
		return s
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		events.Warnf("store: malformed JSON in %s: %v", path, err)
		return s
	}
	if doc.Version != Version {
		events.Warnf("store: unknown version %d in %s, treating as empty", doc.Version, path)
		return s
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*SessionRecord{}
	}
	s.doc = doc
	return s
}

// withFileLock runs fn while holding an advisory flock on path+".flock",
// when that lock is free. Best-effort: the lock is only tried, never waited
// for; if another process holds it, fn runs without it, since the
// atomic-rename discipline in save() guarantees readers never observe a
// torn write regardless.
func withFileLock(path string, fn func()) {
	fl := flock.New(path + ".flock")
	locked, err := fl.TryLock()
	if err == nil && locked {
		defer fl.Unlock()
	}
	fn()
}

// save serializes the document to a sibling temp file and atomically
// renames it onto s.path. No partial writes are ever observable by a
// concurrent reader.
func (s *Store) save() error {
	return util.AtomicWriteJSON(s.path, s.doc)
}

// Update upserts the record for sessionID. state_changed_at is carried over
// iff the incoming state equals the existing state; otherwise it is set to
// now. updated_at is always set to now. Optional metadata fields are
// carried over unchanged unless mutate is provided to adjust them.
func (s *Store) Update(sessionID string, state SessionState, cwd string, mutate func(*SessionRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saveErr error
	withFileLock(s.path, func() {
		now := time.Now()
		rec, existed := s.doc.Sessions[sessionID]
		if !existed || rec == nil {
			rec = &SessionRecord{SessionID: sessionID, StateChangedAt: now}
		}
		if rec.State != state {
			rec.StateChangedAt = now
		}
		rec.State = state
		if cwd != "" {
			rec.CWD = cwd
		}
		rec.UpdatedAt = now
		if mutate != nil {
			mutate(rec)
		}
		s.doc.Sessions[sessionID] = rec
		saveErr = s.save()
	})
	return saveErr
}

// Touch sets updated_at and applies mutate (metadata such as LastEvent,
// WorkingOn or HolderPID) without changing state or cwd — used for
// heartbeat-only hook events (PreToolUse, PostToolUse while already active)
// and for stamping metadata onto an existing record. A missing record is
// left absent.
func (s *Store) Touch(sessionID string, mutate func(*SessionRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saveErr error
	withFileLock(s.path, func() {
		rec, existed := s.doc.Sessions[sessionID]
		if !existed || rec == nil {
			return
		}
		rec.UpdatedAt = time.Now()
		if mutate != nil {
			mutate(rec)
		}
		saveErr = s.save()
	})
	return saveErr
}

// Remove deletes the record for sessionID, if any, and saves.
func (s *Store) Remove(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saveErr error
	withFileLock(s.path, func() {
		if _, ok := s.doc.Sessions[sessionID]; !ok {
			return
		}
		delete(s.doc.Sessions, sessionID)
		saveErr = s.save()
	})
	return saveErr
}

// GetBySessionID returns a copy of the record for sessionID, or nil.
func (s *Store) GetBySessionID(sessionID string) *SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.Sessions[sessionID]
	if !ok || rec == nil {
		return nil
	}
	cp := *rec
	return &cp
}

// Sessions returns a snapshot slice of all records currently in the store.
func (s *Store) Sessions() []*SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*SessionRecord, 0, len(s.doc.Sessions))
	for _, rec := range s.doc.Sessions {
		cp := *rec
		out = append(out, &cp)
	}
	return out
}

// Path returns the backing file path, mostly for tests and diagnostics.
func (s *Store) Path() string { return s.path }

// DefaultPath returns the conventional sessions.json location under root.
func DefaultPath(root string) string {
	return filepath.Join(root, "sessions.json")
}
