package lock

import (
	"os"
	"testing"
	"time"
)

func mustCreate(t *testing.T, base, key, path, session string, pid int) {
	t.Helper()
	created, err := Create(base, key, path, session, pid, nil)
	if err != nil {
		t.Fatalf("Create(%q, %q): %v", key, path, err)
	}
	if !created {
		t.Fatalf("Create(%q, %q): expected creation, got already-locked", key, path)
	}
}

func TestIsRunningDirectionalAsymmetry(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "/ws/pkg/a", "/ws/pkg/a", "sess-a", os.Getpid())

	if !IsRunning(base, "/ws/pkg/a") {
		t.Error("exact match should be running")
	}
	if !IsRunning(base, "/ws") {
		t.Error("a child lock should make the parent query running (child answers parent)")
	}
	if IsRunning(base, "/ws/pkg/a/sub") {
		t.Error("a parent lock must never make a child query running")
	}
	if IsRunning(base, "/ws/other") {
		t.Error("sibling path must not be running")
	}
}

func TestFindMatchingNewestWins(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "old", "/p", "sess-old", os.Getpid())
	time.Sleep(2 * time.Millisecond)
	mustCreate(t, base, "new", "/p", "sess-new", os.Getpid())

	best := FindMatching(base, "/p", nil, nil)
	if best == nil {
		t.Fatal("expected a match")
	}
	if best.SessionID != "sess-new" {
		t.Errorf("expected newest lock (sess-new), got %s", best.SessionID)
	}
}

func TestFindMatchingExcludesParent(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "parent", "/ws", "sess-parent", os.Getpid())

	if got := FindMatching(base, "/ws/pkg/a", nil, nil); got != nil {
		t.Errorf("parent lock must not match a child query, got %+v", got)
	}
}

func TestCreateIdempotent(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "k", "/p", "sess", os.Getpid())

	created, err := Create(base, "k", "/p", "sess", os.Getpid(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created {
		t.Error("expected Create to be a no-op for an already-live key")
	}
}

func TestDeadPIDIsNotAlive(t *testing.T) {
	base := t.TempDir()
	// A PID essentially guaranteed not to correspond to a live process.
	mustCreate(t, base, "k", "/p", "sess", 1<<30-1)

	if IsRunning(base, "/p") {
		t.Error("a lock with a dead PID must not be considered running")
	}
}

func TestReleaseBySessionRequiresPIDMatch(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "k", "/p", "sess", os.Getpid())

	removed, err := ReleaseBySession(base, "sess", os.Getpid()+999999)
	if err != nil {
		t.Fatalf("ReleaseBySession: %v", err)
	}
	if removed {
		t.Error("release must not succeed for a mismatched pid")
	}

	removed, err = ReleaseBySession(base, "sess", os.Getpid())
	if err != nil {
		t.Fatalf("ReleaseBySession: %v", err)
	}
	if !removed {
		t.Error("release should succeed for a matching pid")
	}
	if IsRunning(base, "/p") {
		t.Error("lock should be gone after release")
	}
}

func TestCountOtherLiveLocksForSession(t *testing.T) {
	base := t.TempDir()
	mustCreate(t, base, "a", "/p", "shared-sess", os.Getpid())
	mustCreate(t, base, "b", "/q", "shared-sess", os.Getpid()+1)

	if n := CountOtherLiveLocksForSession(base, "shared-sess", os.Getpid()); n != 1 {
		t.Errorf("expected 1 other live lock, got %d", n)
	}
	if n := CountOtherLiveLocksForSession(base, "shared-sess", os.Getpid()+1); n != 1 {
		t.Errorf("expected 1 other live lock, got %d", n)
	}
	if n := CountOtherLiveLocksForSession(base, "unrelated", os.Getpid()); n != 0 {
		t.Errorf("expected 0 for unrelated session, got %d", n)
	}
}

func TestMatchTypePriority(t *testing.T) {
	tests := []struct {
		candidate, query string
		want             MatchType
	}{
		{"/p", "/p", MatchExact},
		{"/", "/", MatchExact},
		{"/ws/pkg/a", "/ws", MatchChild},
		{"/ws", "/ws/pkg/a", MatchParent},
		{"/a", "/b", NoMatch},
		{"/foo", "/", MatchChild},
	}
	for _, tt := range tests {
		if got := Match(tt.candidate, tt.query); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.candidate, tt.query, got, tt.want)
		}
	}
}
