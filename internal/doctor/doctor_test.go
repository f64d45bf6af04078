package doctor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/store"
)

func TestOrphanedLockCheckFindsAndFixes(t *testing.T) {
	root := t.TempDir()
	if _, err := lock.Create(root, "k", "/p", "sess", 1<<30-1, nil); err != nil {
		t.Fatal(err)
	}

	ctx := &CheckContext{DataRoot: root, Now: time.Now()}
	check := NewOrphanedLockCheck()

	result := check.Run(ctx)
	if result.Status != StatusWarning || len(result.Details) != 1 {
		t.Fatalf("got %+v", result)
	}

	if err := check.Fix(ctx); err != nil {
		t.Fatal(err)
	}
	if result := check.Run(ctx); result.Status != StatusOK {
		t.Errorf("expected OK after fix, got %+v", result)
	}
}

func TestMalformedStoreCheckDetectsBadJSON(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(store.DefaultPath(root), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	check := NewMalformedStoreCheck()
	result := check.Run(&CheckContext{DataRoot: root, Now: time.Now()})
	if result.Status != StatusError {
		t.Fatalf("got %+v", result)
	}
}

func TestMalformedStoreCheckOKWhenMissing(t *testing.T) {
	root := t.TempDir()
	check := NewMalformedStoreCheck()
	result := check.Run(&CheckContext{DataRoot: root, Now: time.Now()})
	if result.Status != StatusOK {
		t.Fatalf("got %+v", result)
	}
}

func TestUnmatchedStaleRecordCheck(t *testing.T) {
	root := t.TempDir()
	st := store.Load(store.DefaultPath(root))
	if err := st.Update("s1", store.StateWorking, "/p", nil); err != nil {
		t.Fatal(err)
	}

	now := time.Now().Add(10 * time.Minute)
	check := NewUnmatchedStaleRecordCheck()
	result := check.Run(&CheckContext{DataRoot: root, Now: now})
	if result.Status != StatusWarning {
		t.Fatalf("got %+v", result)
	}

	if err := check.Fix(&CheckContext{DataRoot: root, Now: now}); err != nil {
		t.Fatal(err)
	}
	st2 := store.Load(store.DefaultPath(root))
	if rec := st2.GetBySessionID("s1"); rec != nil {
		t.Errorf("expected record removed, got %+v", rec)
	}
}

func TestUnmatchedStaleRecordCheckSkipsLiveLock(t *testing.T) {
	root := t.TempDir()
	st := store.Load(store.DefaultPath(root))
	if err := st.Update("s1", store.StateWorking, "/p", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Create(root, "/p", "/p", "s1", 1, nil); err != nil {
		t.Fatal(err)
	}

	now := time.Now().Add(10 * time.Minute)
	check := NewUnmatchedStaleRecordCheck()
	result := check.Run(&CheckContext{DataRoot: root, Now: now})
	if result.Status != StatusOK {
		t.Fatalf("expected OK since a live lock backs the stale record, got %+v", result)
	}
}

func TestOrphanedTombstoneCheck(t *testing.T) {
	root := t.TempDir()
	ts := store.NewTombstones(store.DefaultTombstoneDir(root))
	if err := ts.Write("s1"); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(store.DefaultTombstoneDir(root), "s1"), old, old); err != nil {
		t.Fatal(err)
	}

	check := NewOrphanedTombstoneCheck()
	result := check.Run(&CheckContext{DataRoot: root, Now: time.Now()})
	if result.Status != StatusWarning {
		t.Fatalf("got %+v", result)
	}

	if err := check.Fix(&CheckContext{DataRoot: root, Now: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if ts.Has("s1") {
		t.Error("expected tombstone cleared after fix")
	}
}

func TestRunAndFixRepairsWarnings(t *testing.T) {
	root := t.TempDir()
	if _, err := lock.Create(root, "k", "/p", "sess", 1<<30-1, nil); err != nil {
		t.Fatal(err)
	}

	results := RunAndFix(&CheckContext{DataRoot: root, Now: time.Now()}, All())
	for _, r := range results {
		if r.Name == "orphaned-locks" && r.Status != StatusOK {
			t.Errorf("expected orphaned-locks fixed, got %+v", r)
		}
	}
}
