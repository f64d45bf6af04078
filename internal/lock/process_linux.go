//go:build linux

package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// clockTicksPerSec is the kernel's USER_HZ, effectively fixed at 100 on
// every mainstream Linux distribution; reading it portably requires cgo's
// sysconf(_SC_CLK_TCK), which this package avoids.
const clockTicksPerSec = 100

// bootTime returns the kernel boot time by reading /proc/stat's "btime"
// line (seconds since epoch). Returns false if /proc is unavailable, e.g.
// inside some restrictive containers.
func bootTime() (time.Time, bool) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "btime ") {
			secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "btime ")), 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			return time.Unix(secs, 0), true
		}
	}
	return time.Time{}, false
}

// processStartTime reads field 22 (starttime, in clock ticks since boot) of
// /proc/<pid>/stat and converts it to a wall-clock time, used to defend
// against PID reuse per the proc_started lock field.
func processStartTime(pid int) (time.Time, bool) {
	boot, ok := bootTime()
	if !ok {
		return time.Time{}, false
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return time.Time{}, false
	}

	// The comm field (2nd, parenthesized) may itself contain spaces or
	// parens, so split on the last ')' rather than naive whitespace split.
	closeParen := strings.LastIndex(string(data), ")")
	if closeParen < 0 {
		return time.Time{}, false
	}
	fields := strings.Fields(string(data)[closeParen+1:])
	const starttimeFieldIndex = 19 // field 22 overall, 0-indexed after comm
	if len(fields) <= starttimeFieldIndex {
		return time.Time{}, false
	}
	ticks, err := strconv.ParseInt(fields[starttimeFieldIndex], 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	offset := time.Duration(ticks) * time.Second / clockTicksPerSec
	return boot.Add(offset), true
}
