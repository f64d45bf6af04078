// Package resolver implements the session-state resolver: the pure
// function over (lock registry snapshot, state store snapshot, query path)
// that the dashboard query API calls to answer "what is the state of
// project P?". It takes the lock base directory and a Store as explicit,
// injected parameters rather than touching global state. Only the Store is
// an in-memory snapshot: each call scans the lock registry under lockBase
// on disk through internal/lock, so tests of Resolve build real lock
// directories.
package resolver

import (
	"sort"
	"time"

	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/store"
)

// ResolvedState is the resolver's answer for a query path.
type ResolvedState struct {
	State      store.SessionState
	SessionID  string
	CWD        string
	IsFromLock bool
}

// clock lets tests pin "now"; defaults to time.Now.
var clock = time.Now

// Windows bundles the two configurable staleness windows the resolver
// applies. The zero value is invalid; callers use DefaultWindows or values
// sourced from internal/config.ResolverConfig.
type Windows struct {
	LockStale     time.Duration
	FallbackFresh time.Duration
}

// DefaultWindows are the windows the spec names (5 minutes, 30 seconds),
// used by Resolve and whenever internal/config.ResolverConfig leaves its
// fields at their zero value.
var DefaultWindows = Windows{
	LockStale:     store.DefaultLockStaleWindow,
	FallbackFresh: store.DefaultFallbackFreshWindow,
}

// WindowsFromSeconds builds a Windows from internal/config.ResolverConfig's
// two int-seconds fields, substituting DefaultWindows for any field left at
// its zero value (an empty or partial config.toml).
func WindowsFromSeconds(lockStaleSeconds, fallbackFreshSeconds int) Windows {
	win := DefaultWindows
	if lockStaleSeconds > 0 {
		win.LockStale = time.Duration(lockStaleSeconds) * time.Second
	}
	if fallbackFreshSeconds > 0 {
		win.FallbackFresh = time.Duration(fallbackFreshSeconds) * time.Second
	}
	return win
}

// Resolve answers "what is the state of project Q?" using the default
// staleness windows. Equivalent to ResolveWithWindows(lockBase, st, query,
// DefaultWindows).
func Resolve(lockBase string, st *store.Store, query string) *ResolvedState {
	return ResolveWithWindows(lockBase, st, query, DefaultWindows)
}

// ResolveWithWindows answers "what is the state of project Q?" by first
// trying the lock-authoritative path (an agent is provably alive at Q), then
// falling back to a fresh-record-only search when no lock matches. Returns
// nil when neither path yields an answer — ambiguity is never reported as an
// error, per spec. win controls the lock-backed staleness window and the
// lockless-fallback freshness window, normally sourced from
// internal/config.ResolverConfig.
func ResolveWithWindows(lockBase string, st *store.Store, query string, win Windows) *ResolvedState {
	if result := resolvePrimary(lockBase, st, query, win.LockStale); result != nil {
		return result
	}
	return resolveFallback(st, query, win.FallbackFresh)
}

// resolvePrimary implements the lock-authoritative path (§4.3.2). It
// returns nil only when no lock is running at query at all; once a lock is
// found, this path always produces an answer (Ready at worst).
func resolvePrimary(lockBase string, st *store.Store, query string, staleWindow time.Duration) *ResolvedState {
	if !lock.IsRunning(lockBase, query) {
		return nil
	}

	best := lock.FindMatching(lockBase, query, nil, nil)
	if best == nil {
		// IsRunning said yes but FindMatching disagrees — a benign race
		// between the two filesystem scans. Treat as "no lock", letting
		// the fallback path decide.
		return nil
	}

	rec := bestRecordFor(st, best.Path, staleWindow)
	now := clock()

	switch {
	case rec == nil:
		return &ResolvedState{State: store.StateReady, CWD: best.Path, IsFromLock: true}
	case rec.IsStaleAt(now, staleWindow):
		return &ResolvedState{State: store.StateReady, SessionID: rec.SessionID, CWD: best.Path, IsFromLock: true}
	default:
		return &ResolvedState{State: rec.State, SessionID: rec.SessionID, CWD: best.Path, IsFromLock: true}
	}
}

// bestRecordFor finds the best record bound to a lock at lockPath: the
// match type is computed against both cwd and project_dir (whichever is
// stronger), then among records tied at the strongest match type, prefer
// non-stale over stale, then higher updated_at, then higher match type
// again as a tiebreak, then lexicographically greater session_id as the
// final deterministic tiebreak.
func bestRecordFor(st *store.Store, lockPath string, staleWindow time.Duration) *store.SessionRecord {
	now := clock()
	type scored struct {
		rec   *store.SessionRecord
		mt    lock.MatchType
		stale bool
	}

	var candidates []scored
	for _, rec := range st.Sessions() {
		mt := strongestMatch(rec, lockPath)
		if mt == lock.NoMatch {
			continue
		}
		candidates = append(candidates, scored{rec: rec, mt: mt, stale: rec.IsStaleAt(now, staleWindow)})
	}
	if len(candidates) == 0 {
		return nil
	}

	strongest := lock.NoMatch
	for _, c := range candidates {
		if c.mt > strongest {
			strongest = c.mt
		}
	}
	tied := candidates[:0]
	for _, c := range candidates {
		if c.mt == strongest {
			tied = append(tied, c)
		}
	}
	candidates = tied

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.stale != b.stale {
			return !a.stale // non-stale sorts first
		}
		if !a.rec.UpdatedAt.Equal(b.rec.UpdatedAt) {
			return a.rec.UpdatedAt.After(b.rec.UpdatedAt)
		}
		if a.mt != b.mt {
			return a.mt > b.mt
		}
		return a.rec.SessionID > b.rec.SessionID
	})
	return candidates[0].rec
}

// strongestMatch returns the strongest of the match types between rec's cwd
// and project_dir against lockPath.
func strongestMatch(rec *store.SessionRecord, lockPath string) lock.MatchType {
	best := lock.Match(rec.CWD, lockPath)
	if rec.ProjectDir != "" {
		if pd := lock.Match(rec.ProjectDir, lockPath); pd > best {
			best = pd
		}
	}
	return best
}

// resolveFallback implements the fresh-record-only fallback (§4.3.3): used
// only when no live lock matches query. Parent matches are forbidden here.
func resolveFallback(st *store.Store, query string, freshWindow time.Duration) *ResolvedState {
	now := clock()

	var best *store.SessionRecord
	for _, rec := range st.Sessions() {
		mt := lock.Match(rec.CWD, query)
		if mt != lock.MatchExact && mt != lock.MatchChild {
			continue
		}
		if best == nil || rec.UpdatedAt.After(best.UpdatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	if !best.IsFreshForFallbackAt(now, freshWindow) {
		return nil
	}

	return &ResolvedState{
		State:      best.State,
		SessionID:  best.SessionID,
		CWD:        best.CWD,
		IsFromLock: false,
	}
}
