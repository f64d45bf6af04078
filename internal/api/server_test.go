package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/resolver"
	"github.com/agenthud/hud/internal/store"
)

func TestHandleResolveFound(t *testing.T) {
	base := t.TempDir()
	if _, err := lock.Create(base, "/p", "/p", "sess", 1, nil); err != nil {
		t.Fatal(err)
	}
	st := store.Load(store.DefaultPath(base))
	if err := st.Update("sess", store.StateWorking, "/p", nil); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(base, func() *store.Store { return store.Load(store.DefaultPath(base)) }, resolver.DefaultWindows)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/resolve?path=/p")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func TestHandleResolveMissingPath(t *testing.T) {
	base := t.TempDir()
	srv := NewServer(base, func() *store.Store { return store.Load(store.DefaultPath(base)) }, resolver.DefaultWindows)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/resolve")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	h := NewHub()
	c := &client{send: make(chan []byte)} // unbuffered: any send blocks immediately
	h.register(c)

	// Broadcast must not block even though c's channel has no reader.
	done := make(chan struct{})
	go func() {
		h.Broadcast([]byte("hello"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}
}
