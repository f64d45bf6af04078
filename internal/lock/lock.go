// Package lock implements the liveness lock registry: a directory of
// per-session marker directories on a POSIX filesystem, each proving "a
// process is alive and claims this project path" without saying anything
// about what state that process is in. State lives in the session record
// store (internal/store); lock answers liveness only, which lets the
// resolver tell "agent crashed mid-write" (stale record, no lock) apart
// from "agent live but between events" (lock present, record may be
// stale).
package lock

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agenthud/hud/internal/events"
)

// LockInfo describes a live (or formerly live) lock directory.
type LockInfo struct {
	PID         int        `json:"pid"`
	Path        string     `json:"path"`
	Created     time.Time  `json:"created"`
	ProcStarted *time.Time `json:"proc_started,omitempty"`

	// SessionID is an optional field beyond the four the spec names for
	// LockInfo, carried so the hook processor's SessionEnd delete protocol
	// (count other live locks bound to the same session but a different
	// PID) can find sibling locks without relying on the hash key scheme,
	// which is keyed by the path, or by the path plus a random suffix when
	// another session already holds a lock at that path. Unknown to old lock-holders;
	// absence is not an error.
	SessionID string `json:"session_id,omitempty"`

	// dir is the absolute path to the backing <hash>.lock directory. Not
	// serialized; populated on read for ReleaseBySession / diagnostics.
	dir string
}

// meta mirrors the on-disk meta.json. Created is accepted under either
// "created" or its back-compat alias "started".
type meta struct {
	PID         int        `json:"pid"`
	Path        string     `json:"path"`
	SessionID   string     `json:"session_id,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
	Started     *time.Time `json:"started,omitempty"`
	ProcStarted *time.Time `json:"proc_started,omitempty"`
}

func (m meta) created() time.Time {
	if m.Created != nil {
		return *m.Created
	}
	if m.Started != nil {
		return *m.Started
	}
	return time.Time{}
}

// hashKey returns the content-addressed MD5 hex digest used as a lock
// directory name.
func hashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func lockDirFor(base, key string) string {
	return filepath.Join(base, hashKey(key)+".lock")
}

// normalize strips all trailing slashes, preserving the root "/".
func normalize(p string) string {
	if p == "/" || p == "" {
		return p
	}
	return strings.TrimRight(p, "/")
}

// readLockDir reads and validates one <hash>.lock directory. It returns nil
// if the directory is gone, the pid file or meta.json are missing or
// malformed, or the PID is not alive — never an error, per the "missing or
// malformed artifact" handling spec requires throughout this package.
func readLockDir(dir string) *LockInfo {
	pidData, err := os.ReadFile(filepath.Join(dir, "pid"))
	if err != nil {
		return nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		events.Warnf("lock: malformed pid file in %s: %v", dir, err)
		return nil
	}

	metaData, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		events.Warnf("lock: missing meta.json in %s: %v", dir, err)
		return nil
	}
	var m meta
	if err := json.Unmarshal(metaData, &m); err != nil {
		events.Warnf("lock: malformed meta.json in %s: %v", dir, err)
		return nil
	}

	info := &LockInfo{
		PID:         pid,
		Path:        normalize(m.Path),
		Created:     m.created(),
		ProcStarted: m.ProcStarted,
		SessionID:   m.SessionID,
		dir:         dir,
	}
	if !isAlive(info) {
		return nil
	}
	return info
}

// ProcessStartTime exposes the platform-specific process start time lookup
// used internally for proc_started liveness checks, so callers that create
// locks (the lock-holder daemon) can stamp meta.json with the same value
// isAlive will later compare against.
func ProcessStartTime(pid int) (time.Time, bool) {
	return processStartTime(pid)
}

// isAlive implements the lock liveness invariant: the directory is present
// AND kill(pid, 0) succeeds AND, if proc_started is set, the OS agrees the
// process started at that time.
func isAlive(info *LockInfo) bool {
	if !processExists(info.PID) {
		return false
	}
	if info.ProcStarted != nil {
		started, ok := processStartTime(info.PID)
		if ok && !started.Equal(*info.ProcStarted) {
			return false
		}
	}
	return true
}

// scanAll enumerates every *.lock directory under base and returns the live
// ones. Errors enumerating the directory (missing base dir, permission
// denied) yield an empty slice, never an error.
func scanAll(base string) []*LockInfo {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}

	var out []*LockInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		if info := readLockDir(filepath.Join(base, e.Name())); info != nil {
			out = append(out, info)
		}
	}
	return out
}

// MatchType ranks how a lock's path relates to a query path. Exact beats
// Child beats Parent; this ordering is absolute and dominates any
// timestamp-based freshness comparison.
type MatchType int

const (
	NoMatch MatchType = iota
	MatchParent
	MatchChild
	MatchExact
)

// Match computes the match type of candidate relative to query, both
// already-normalized paths.
func Match(candidate, query string) MatchType {
	candidate = normalize(candidate)
	query = normalize(query)

	if candidate == query {
		return MatchExact
	}
	if isChildOf(candidate, query) {
		return MatchChild
	}
	if isChildOf(query, candidate) {
		return MatchParent
	}
	return NoMatch
}

// isChildOf reports whether a is a child of b: a starts with b+"/", with
// the root "/" handled so that "/foo" is a child of "/" but "/" is not a
// child of itself.
func isChildOf(a, b string) bool {
	if b == "/" {
		return a != "/" && strings.HasPrefix(a, "/")
	}
	return strings.HasPrefix(a, b+"/")
}

// CheckExact returns the live lock whose path exactly equals query, if any.
// Among ties (there should be at most one in practice) the newest wins.
func CheckExact(base, query string) *LockInfo {
	return bestOfType(base, query, MatchExact)
}

// FindChild returns the newest live lock whose path is a strict child of
// query.
func FindChild(base, query string) *LockInfo {
	return bestOfType(base, query, MatchChild)
}

func bestOfType(base, query string, want MatchType) *LockInfo {
	query = normalize(query)
	var best *LockInfo
	for _, info := range scanAll(base) {
		if Match(info.Path, query) != want {
			continue
		}
		if best == nil || info.Created.After(best.Created) {
			best = info
		}
	}
	return best
}

// FindMatching returns the newest (by Created) live lock among all whose
// path is an exact or child match of query, optionally filtered by pid
// and/or cwd equality. Parent locks never match here — this directional
// asymmetry (child locks answer parent queries; parent locks never answer
// child queries) is the central lookup rule.
func FindMatching(base, query string, pid *int, cwd *string) *LockInfo {
	query = normalize(query)
	candidates := scanAll(base)

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Created.After(candidates[j].Created)
	})

	var best *LockInfo
	for _, info := range candidates {
		mt := Match(info.Path, query)
		if mt != MatchExact && mt != MatchChild {
			continue
		}
		if pid != nil && info.PID != *pid {
			continue
		}
		if cwd != nil && normalize(info.Path) != normalize(*cwd) {
			continue
		}
		if best == nil || info.Created.After(best.Created) {
			best = info
		}
	}
	return best
}

// IsRunning reports whether an agent is live at query: an exact-match lock
// exists, or a child lock exists. A lock at a parent of query never makes
// query "running" — this is tested by TestIsRunningDirectionalAsymmetry in
// this package.
func IsRunning(base, query string) bool {
	return CheckExact(base, query) != nil || FindChild(base, query) != nil
}

// Create idempotently creates a lock directory keyed by key (typically the
// project path, or path+pid when a session is shared across terminals and
// needs a second concurrent lock at the same path) and claiming path for
// pid. sessionID is stored in meta.json so ReleaseBySession and
// CountOtherLiveLocksForSession can find it without depending on the key
// scheme. Returns false without error if a live lock already exists for
// this key.
func Create(base, key, path, sessionID string, pid int, procStarted *time.Time) (bool, error) {
	dir := lockDirFor(base, key)

	if existing := readLockDir(dir); existing != nil {
		return false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	if err := os.WriteFile(filepath.Join(dir, "pid"), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return false, err
	}

	now := time.Now()
	m := meta{PID: pid, Path: normalize(path), SessionID: sessionID, Created: &now, ProcStarted: procStarted}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseBySession removes the lock(s) bound to sessionID whose stored PID
// matches pid. Returns whether any removal happened. Absence of the lock is
// not an error.
func ReleaseBySession(base, sessionID string, pid int) (bool, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return false, nil
	}

	removed := false
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		dir := filepath.Join(base, e.Name())
		info := readLockDirRaw(dir)
		if info == nil || info.SessionID != sessionID || info.PID != pid {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, err
		}
		removed = true
	}
	return removed, nil
}

// readLockDirRaw reads meta.json/pid without requiring liveness, for
// release/cleanup paths that must act on a lock regardless of whether its
// owning process is still alive.
func readLockDirRaw(dir string) *LockInfo {
	pidData, err := os.ReadFile(filepath.Join(dir, "pid"))
	if err != nil {
		return nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil
	}
	metaData, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil
	}
	var m meta
	if err := json.Unmarshal(metaData, &m); err != nil {
		return nil
	}
	return &LockInfo{PID: pid, Path: normalize(m.Path), Created: m.created(), ProcStarted: m.ProcStarted, SessionID: m.SessionID, dir: dir}
}

// Orphaned returns the lock directories under base whose owning process is
// no longer alive: readable artifacts that readLockDir would reject on
// liveness alone. Used by the doctor's orphaned-lock check; directories
// with missing or malformed pid/meta.json are not included here, since
// those are a different failure mode (a malformed lock, not a dead
// process) that this function does not report.
func Orphaned(base string) []string {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		dir := filepath.Join(base, e.Name())
		info := readLockDirRaw(dir)
		if info == nil {
			continue
		}
		if !isAlive(info) {
			out = append(out, dir)
		}
	}
	return out
}

// CountOtherLiveLocksForSession returns the number of live locks bound to
// sessionID whose PID differs from pid — used by the SessionEnd delete
// protocol to detect a shared session across terminals before deleting its
// record.
func CountOtherLiveLocksForSession(base, sessionID string, pid int) int {
	count := 0
	for _, info := range scanAll(base) {
		if info.SessionID == sessionID && info.PID != pid {
			count++
		}
	}
	return count
}
