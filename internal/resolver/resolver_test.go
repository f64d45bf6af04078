package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/store"
)

// storeFixture writes sessions.json with literal records and returns a
// loaded Store, giving tests full control over updated_at/state_changed_at
// without going through Store.Update's time.Now() stamping.
func storeFixture(t *testing.T, records map[string]*store.SessionRecord) *store.Store {
	t.Helper()
	doc := struct {
		Version  int                              `json:"version"`
		Sessions map[string]*store.SessionRecord `json:"sessions"`
	}{Version: store.Version, Sessions: records}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return store.Load(path)
}

func lockFixture(t *testing.T, base, key, path string, createdAt time.Time) {
	t.Helper()
	dir := filepath.Join(base, "x-"+key+".lock")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pid"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	// PID 1 always exists on a POSIX system (init/launchd), giving us a
	// deterministic "alive" lock without depending on the test process's
	// own PID.
	meta := map[string]interface{}{
		"pid":     1,
		"path":    path,
		"created": createdAt,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func rec(id string, state store.SessionState, cwd string, updatedAgo time.Duration) *store.SessionRecord {
	now := time.Now()
	return &store.SessionRecord{
		SessionID: id,
		State:     state,
		CWD:       cwd,
		UpdatedAt: now.Add(-updatedAgo),
	}
}

// S1: Exact beats fresher parent.
func TestScenarioS1ExactBeatsFresherParent(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "cap", "/p/capacitor", time.Now())

	st := storeFixture(t, map[string]*store.SessionRecord{
		"capacitor-session": rec("capacitor-session", store.StateReady, "/p/capacitor", 10*time.Minute),
		"home-session":      rec("home-session", store.StateWorking, "/p", 0),
	})

	got := Resolve(base, st, "/p/capacitor")
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.State != store.StateReady || got.SessionID != "capacitor-session" || got.CWD != "/p/capacitor" || !got.IsFromLock {
		t.Errorf("got %+v", got)
	}
}

// S2: Monorepo root finds child.
func TestScenarioS2MonorepoRootFindsChild(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "a", "/ws/pkg/a", time.Now())

	st := storeFixture(t, map[string]*store.SessionRecord{
		"a-sess": rec("a-sess", store.StateWorking, "/ws/pkg/a", 0),
	})

	got := Resolve(base, st, "/ws")
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.State != store.StateWorking || got.SessionID != "a-sess" || got.CWD != "/ws/pkg/a" {
		t.Errorf("got %+v", got)
	}
}

// S3: Sibling isolation.
func TestScenarioS3SiblingIsolation(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "a", "/ws/a", time.Now())

	st := storeFixture(t, map[string]*store.SessionRecord{
		"a-sess": rec("a-sess", store.StateWorking, "/ws/a", 0),
	})

	if got := Resolve(base, st, "/ws/b"); got != nil {
		t.Errorf("expected nil for disjoint sibling, got %+v", got)
	}
}

// S4: Fresh-record fallback.
func TestScenarioS4FreshRecordFallback(t *testing.T) {
	base := t.TempDir()
	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateWorking, "/p", 5*time.Second),
	})

	got := Resolve(base, st, "/p")
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.State != store.StateWorking || got.SessionID != "s1" || got.CWD != "/p" || got.IsFromLock {
		t.Errorf("got %+v", got)
	}
}

// S5: Stale-record no-fallback.
func TestScenarioS5StaleRecordNoFallback(t *testing.T) {
	base := t.TempDir()
	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateWorking, "/p", 60*time.Second),
	})

	if got := Resolve(base, st, "/p"); got != nil {
		t.Errorf("expected nil for a stale record with no lock, got %+v", got)
	}
}

// Invariant 3: disjoint sessions never bleed into each other's queries.
func TestInvariantDisjointSessionsNeverBleed(t *testing.T) {
	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateWorking, "/a", 0),
		"s2": rec("s2", store.StateWorking, "/b", 0),
	})
	base := t.TempDir()

	got := Resolve(base, st, "/a")
	if got == nil || got.SessionID != "s1" {
		t.Fatalf("got %+v", got)
	}
}

// Invariant 4: a stale record behind a live lock always reports Ready, never
// its own (possibly active) persisted state.
func TestInvariantStaleRecordBehindLockIsReady(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "k", "/p", time.Now())

	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateWorking, "/p", 10*time.Minute),
	})

	got := Resolve(base, st, "/p")
	if got == nil || got.State != store.StateReady {
		t.Errorf("expected Ready for a stale record behind a lock, got %+v", got)
	}
}

// Invariant 5: a record older than the 30s fallback window with no lock
// yields nothing.
func TestInvariantStaleBeyondFallbackWindowYieldsNothing(t *testing.T) {
	base := t.TempDir()
	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateWorking, "/p", 31*time.Second),
	})

	if got := Resolve(base, st, "/p"); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestFallbackNeverMatchesParentRecord(t *testing.T) {
	base := t.TempDir()
	// Record at /home (parent), query /home/project: must not answer.
	st := storeFixture(t, map[string]*store.SessionRecord{
		"home": rec("home", store.StateWorking, "/home", 0),
	})

	if got := Resolve(base, st, "/home/project"); got != nil {
		t.Errorf("fallback must never accept a parent match, got %+v", got)
	}
}

func TestIdleStateExcludedFromFallback(t *testing.T) {
	base := t.TempDir()
	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": rec("s1", store.StateIdle, "/p", 0),
	})

	if got := Resolve(base, st, "/p"); got != nil {
		t.Errorf("Idle state must never surface from fallback, got %+v", got)
	}
}

func TestProjectDirAlsoConsideredForLockMatch(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "k", "/ws/pkg/a", time.Now())

	st := storeFixture(t, map[string]*store.SessionRecord{
		"s1": {SessionID: "s1", State: store.StateWorking, CWD: "/elsewhere", ProjectDir: "/ws/pkg/a", UpdatedAt: time.Now()},
	})

	got := Resolve(base, st, "/ws")
	if got == nil || got.SessionID != "s1" {
		t.Errorf("expected project_dir match to be considered, got %+v", got)
	}
}

func TestMissingRecordBehindLockIsReadyWithNoSession(t *testing.T) {
	base := t.TempDir()
	lockFixture(t, base, "k", "/p", time.Now())
	st := storeFixture(t, map[string]*store.SessionRecord{})

	got := Resolve(base, st, "/p")
	if got == nil || got.State != store.StateReady || got.SessionID != "" {
		t.Errorf("got %+v", got)
	}
}

var _ = lock.MatchExact // keep lock import referenced in case of future assertions
