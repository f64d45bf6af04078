// Package doctor implements `hud doctor`: a set of independent checks over
// the data root's on-disk artifacts (lock directories, sessions.json,
// file-activity.json, tombstones), each able to report a problem and,
// optionally, fix it.
package doctor

import "time"

// Status is a check's outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Category groups checks for display purposes.
type Category string

const (
	CategoryLocks  Category = "locks"
	CategoryStore  Category = "store"
	CategoryConfig Category = "config"
)

// CheckContext carries the environment a check runs against.
type CheckContext struct {
	DataRoot string
	Now      time.Time

	// StaleWindow is the lock-backed staleness window used by
	// UnmatchedStaleRecordCheck, sourced from the same
	// internal/config.ResolverConfig.LockStaleSeconds the resolver itself
	// uses. Zero means the caller didn't set it; checks fall back to
	// store.DefaultLockStaleWindow.
	StaleWindow time.Duration
}

// CheckResult is one check's outcome.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
	Details []string
	FixHint string
}

// Check is a single diagnostic.
type Check interface {
	Name() string
	Description() string
	Category() Category
	Run(ctx *CheckContext) *CheckResult
}

// Fixable is implemented by checks that can repair what they find.
type Fixable interface {
	Check
	Fix(ctx *CheckContext) error
}

// BaseCheck supplies the Name/Description/Category boilerplate every check
// needs, so concrete checks only implement Run.
type BaseCheck struct {
	CheckName        string
	CheckDescription string
	CheckCategory    Category
}

func (b BaseCheck) Name() string            { return b.CheckName }
func (b BaseCheck) Description() string     { return b.CheckDescription }
func (b BaseCheck) Category() Category      { return b.CheckCategory }

// FixableCheck embeds BaseCheck for checks that also implement Fix.
type FixableCheck struct {
	BaseCheck
}

// All returns the full set of checks `hud doctor` runs, in a stable order.
func All() []Check {
	return []Check{
		NewOrphanedLockCheck(),
		NewMalformedStoreCheck(),
		NewUnmatchedStaleRecordCheck(),
		NewOrphanedTombstoneCheck(),
	}
}

// Run executes every check in checks against ctx.
func Run(ctx *CheckContext, checks []Check) []*CheckResult {
	results := make([]*CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, c.Run(ctx))
	}
	return results
}

// RunAndFix runs every check, then calls Fix on any Fixable check whose
// result was not StatusOK, re-running it afterward to report the repaired
// state.
func RunAndFix(ctx *CheckContext, checks []Check) []*CheckResult {
	results := make([]*CheckResult, 0, len(checks))
	for _, c := range checks {
		result := c.Run(ctx)
		if result.Status != StatusOK {
			if f, ok := c.(Fixable); ok {
				if err := f.Fix(ctx); err == nil {
					result = c.Run(ctx)
				} else {
					result.Details = append(result.Details, "fix failed: "+err.Error())
				}
			}
		}
		results = append(results, result)
	}
	return results
}
