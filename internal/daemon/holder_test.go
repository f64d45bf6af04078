package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/agenthud/hud/internal/lock"
)

func TestRunHolderCreatesAndReleasesLock(t *testing.T) {
	base := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunHolder(ctx, base, "/proj", "/proj", "sess-1") }()

	deadline := time.Now().Add(2 * time.Second)
	for !lock.IsRunning(base, "/proj") {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for lock-holder to create its lock")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("RunHolder: %v", err)
	}

	if lock.IsRunning(base, "/proj") {
		t.Error("expected lock to be released after RunHolder returns")
	}
}

func TestRunHolderNoopsWhenAlreadyHeld(t *testing.T) {
	base := t.TempDir()
	if _, err := lock.Create(base, "/proj", "/proj", "sess-1", 1, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := RunHolder(ctx, base, "/proj", "/proj", "sess-2"); err != nil {
		t.Fatalf("RunHolder: %v", err)
	}
}
