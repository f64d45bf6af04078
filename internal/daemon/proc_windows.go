//go:build windows

package daemon

import "os/exec"

// setSysProcAttr is a no-op on Windows: the lock-holder runs independently
// of the parent console without special process-group handling.
func setSysProcAttr(cmd *exec.Cmd) {}
