// Package store implements the file-backed session record store described
// in the on-disk layout: a single sessions.json document mapping session id
// to SessionRecord, written with atomic-rename discipline so readers never
// observe a torn write.
package store

import "time"

// SessionState is a closed variant of the states a tracked agent session can
// be in. Idle is a historical terminal state: the resolver never surfaces it
// from a fresh-record fallback (see resolver.Resolve).
type SessionState string

const (
	StateWorking    SessionState = "working"
	StateReady      SessionState = "ready"
	StateWaiting    SessionState = "waiting"
	StateCompacting SessionState = "compacting"
	StateIdle       SessionState = "idle"
)

// IsActive reports whether the state counts as "already active" for the
// purposes of the hook processor's SessionStart skip rule.
func (s SessionState) IsActive() bool {
	switch s {
	case StateWorking, StateWaiting, StateCompacting:
		return true
	default:
		return false
	}
}

// LastEvent captures debugging metadata about the most recent hook
// invocation that touched a session. All fields are optional.
type LastEvent struct {
	Name      string    `json:"name,omitempty"`
	Time      time.Time `json:"time,omitzero"`
	ToolName  string    `json:"tool_name,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
}

// SessionRecord is the persisted description of one session's last known
// state and metadata. cwd is always absolute; state_changed_at <=
// updated_at; updated_at is monotonic per session across writes from a
// single hook invocation chain.
type SessionRecord struct {
	SessionID         string       `json:"session_id"`
	State             SessionState `json:"state"`
	CWD               string       `json:"cwd"`
	UpdatedAt         time.Time    `json:"updated_at"`
	StateChangedAt    time.Time    `json:"state_changed_at"`
	WorkingOn         string       `json:"working_on,omitempty"`
	TranscriptPath    string       `json:"transcript_path,omitempty"`
	PermissionMode    string       `json:"permission_mode,omitempty"`
	ProjectDir        string       `json:"project_dir,omitempty"`
	LastEvent         *LastEvent   `json:"last_event,omitempty"`
	ActiveSubagents   int          `json:"active_subagent_count"`

	// HolderPID is the PID of the detached lock-holder process spawned for
	// this session (internal/daemon.SpawnHolder), recorded here since it is
	// the PID actually stamped on the session's lock — not the hook
	// process's own PID or its parent's, which have no relationship to the
	// lock. SessionEnd uses it to find and release this session's own lock.
	HolderPID int `json:"holder_pid,omitempty"`
}

// DefaultLockStaleWindow and DefaultFallbackFreshWindow are the windows used
// when a caller has no configured override (internal/config.ResolverConfig's
// zero value resolves to these).
const (
	DefaultLockStaleWindow     = 5 * time.Minute
	DefaultFallbackFreshWindow = 30 * time.Second
)

// IsStaleAt reports whether the record is stale relative to now, using the
// given lock-backed staleness window.
func (r SessionRecord) IsStaleAt(now time.Time, window time.Duration) bool {
	return now.Sub(r.UpdatedAt) > window
}

// IsFreshForFallbackAt reports whether the record is fresh enough to be
// trusted by the lockless fallback path, given its freshness window, and is
// not the historical Idle terminal state.
func (r SessionRecord) IsFreshForFallbackAt(now time.Time, window time.Duration) bool {
	if r.State == StateIdle {
		return false
	}
	return now.Sub(r.UpdatedAt) <= window
}
