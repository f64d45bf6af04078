package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agenthud/hud/internal/lock"
	"github.com/agenthud/hud/internal/store"
)

// tombstoneMaxAge is how long a tombstone may linger unrestarted before the
// orphaned-tombstone check flags it.
const tombstoneMaxAge = 24 * time.Hour

// MalformedStoreCheck validates that sessions.json and file-activity.json,
// if present, are well-formed JSON. The store's own loaders already degrade
// gracefully on malformed input (spec's "warn, never crash" discipline),
// which is exactly why a human-facing check is needed here: an operator
// silently running on an empty store because of a JSON typo deserves a
// louder signal than a line in the event feed.
type MalformedStoreCheck struct {
	BaseCheck
}

func NewMalformedStoreCheck() *MalformedStoreCheck {
	return &MalformedStoreCheck{BaseCheck{
		CheckName:        "malformed-store",
		CheckDescription: "Validates that sessions.json and file-activity.json parse as JSON",
		CheckCategory:    CategoryStore,
	}}
}

func (c *MalformedStoreCheck) Run(ctx *CheckContext) *CheckResult {
	var problems []string
	for _, name := range []string{store.DefaultPath(ctx.DataRoot), store.DefaultActivityPath(ctx.DataRoot)} {
		if err := validateJSONFile(name); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(problems) == 0 {
		return &CheckResult{Name: c.Name(), Status: StatusOK, Message: "Store files are well-formed"}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusError,
		Message: "Malformed store file(s) found",
		Details: problems,
		FixHint: "Not auto-fixable: inspect and repair or remove the file manually",
	}
}

func validateJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var v interface{}
	return json.Unmarshal(data, &v)
}

// UnmatchedStaleRecordCheck flags session records old enough to be stale
// (§ resolver 5-minute window) with no live lock backing them — an agent
// that crashed or was killed without reaching SessionEnd.
type UnmatchedStaleRecordCheck struct {
	FixableCheck
	stale []string
}

func NewUnmatchedStaleRecordCheck() *UnmatchedStaleRecordCheck {
	return &UnmatchedStaleRecordCheck{
		FixableCheck: FixableCheck{BaseCheck{
			CheckName:        "unmatched-stale-records",
			CheckDescription: "Finds session records with no live lock that are stale",
			CheckCategory:    CategoryStore,
		}},
	}
}

func (c *UnmatchedStaleRecordCheck) Run(ctx *CheckContext) *CheckResult {
	c.stale = nil
	st := store.Load(store.DefaultPath(ctx.DataRoot))

	staleWindow := ctx.StaleWindow
	if staleWindow <= 0 {
		staleWindow = store.DefaultLockStaleWindow
	}

	for _, rec := range st.Sessions() {
		if !rec.IsStaleAt(ctx.Now, staleWindow) {
			continue
		}
		if lock.IsRunning(ctx.DataRoot, rec.CWD) {
			continue
		}
		c.stale = append(c.stale, rec.SessionID)
	}

	if len(c.stale) == 0 {
		return &CheckResult{Name: c.Name(), Status: StatusOK, Message: "No unmatched stale records"}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: fmt.Sprintf("Found %d stale record(s) with no live lock", len(c.stale)),
		Details: c.stale,
		FixHint: "Run 'hud doctor --fix' to remove them",
	}
}

func (c *UnmatchedStaleRecordCheck) Fix(ctx *CheckContext) error {
	st := store.Load(store.DefaultPath(ctx.DataRoot))
	var firstErr error
	for _, id := range c.stale {
		if err := st.Remove(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OrphanedTombstoneCheck flags tombstones that have outlived
// tombstoneMaxAge without the session restarting to clear them.
type OrphanedTombstoneCheck struct {
	FixableCheck
	stale []string
}

func NewOrphanedTombstoneCheck() *OrphanedTombstoneCheck {
	return &OrphanedTombstoneCheck{
		FixableCheck: FixableCheck{BaseCheck{
			CheckName:        "orphaned-tombstones",
			CheckDescription: "Finds tombstone markers older than 24h",
			CheckCategory:    CategoryStore,
		}},
	}
}

func (c *OrphanedTombstoneCheck) Run(ctx *CheckContext) *CheckResult {
	ts := store.NewTombstones(store.DefaultTombstoneDir(ctx.DataRoot))
	c.stale = ts.Stale(tombstoneMaxAge, ctx.Now)

	if len(c.stale) == 0 {
		return &CheckResult{Name: c.Name(), Status: StatusOK, Message: "No orphaned tombstones"}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: fmt.Sprintf("Found %d tombstone(s) older than %s", len(c.stale), tombstoneMaxAge),
		Details: c.stale,
		FixHint: "Run 'hud doctor --fix' to remove them",
	}
}

func (c *OrphanedTombstoneCheck) Fix(ctx *CheckContext) error {
	ts := store.NewTombstones(store.DefaultTombstoneDir(ctx.DataRoot))
	var firstErr error
	for _, id := range c.stale {
		if err := ts.Clear(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
