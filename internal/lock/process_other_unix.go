//go:build !windows && !linux

package lock

import "time"

// processStartTime has no portable, cgo-free implementation outside Linux's
// /proc. Lock consumers treat "unknown" as "do not contest on proc_started"
// — see isAlive, which only compares when both sides have a value.
func processStartTime(pid int) (time.Time, bool) {
	return time.Time{}, false
}
