// Package watch notifies the dashboard query API when the data root's
// on-disk state changes, so it can push updates over its websocket feed
// instead of requiring clients to poll.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agenthud/hud/internal/events"
)

// watchedFiles are the artifacts whose changes matter to a dashboard
// client: a lock directory appearing or disappearing, or the store/activity
// documents being rewritten.
var watchedFiles = []string{"sessions.json", "file-activity.json"}

// Watcher debounces filesystem change notifications from the data root and
// invokes onChange at most once per debounce window.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func()
	debounce time.Duration

	mu      sync.Mutex
	pending bool
}

// New starts watching root itself (fsnotify does not recurse, and no
// subdirectory is added) and calls onChange, debounced, whenever a watched
// artifact changes or a *.lock directory directly under root appears or
// disappears. Writes inside a lock directory are not observed.
func New(root string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, onChange: onChange, debounce: debounce}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			events.Warnf("watch: %v", err)
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	for _, f := range watchedFiles {
		if base == f {
			return true
		}
	}
	return filepath.Ext(name) == ".lock"
}

// schedule debounces bursts of events (a single Store.Update touches
// sessions.json via a temp-file-then-rename, which itself generates
// multiple fsnotify events) into a single onChange call.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending {
		return
	}
	w.pending = true
	go func() {
		time.Sleep(w.debounce)
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
		w.onChange()
	}()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
