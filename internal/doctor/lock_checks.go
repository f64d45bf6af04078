package doctor

import (
	"fmt"
	"os"

	"github.com/agenthud/hud/internal/lock"
)

// OrphanedLockCheck flags lock directories whose owning process has died
// without the directory being cleaned up — typically a hard crash that
// skipped the SessionEnd delete protocol's lock release step.
type OrphanedLockCheck struct {
	FixableCheck
	found []string
}

func NewOrphanedLockCheck() *OrphanedLockCheck {
	return &OrphanedLockCheck{
		FixableCheck: FixableCheck{BaseCheck{
			CheckName:        "orphaned-locks",
			CheckDescription: "Finds lock directories whose owning process is no longer alive",
			CheckCategory:    CategoryLocks,
		}},
	}
}

func (c *OrphanedLockCheck) Run(ctx *CheckContext) *CheckResult {
	c.found = lock.Orphaned(ctx.DataRoot)

	if len(c.found) == 0 {
		return &CheckResult{Name: c.Name(), Status: StatusOK, Message: "No orphaned locks found"}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusWarning,
		Message: fmt.Sprintf("Found %d orphaned lock director%s", len(c.found), plural(len(c.found))),
		Details: c.found,
		FixHint: "Run 'hud doctor --fix' to remove them",
	}
}

func (c *OrphanedLockCheck) Fix(ctx *CheckContext) error {
	var firstErr error
	for _, dir := range c.found {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
