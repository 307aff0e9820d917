package diag

import (
	"os"
	"strconv"
	"strings"
)

// Memory guard thresholds, in available megabytes. Below the force
// threshold the dispatch path degrades to read-only; below the heavy
// threshold it rejects heavy requests.
const (
	MemForceReadOnlyMB = 350
	MemHeavyRejectMB   = 512
)

const meminfoPath = "/proc/meminfo"

// AvailableMemMB returns MemAvailable from /proc/meminfo in megabytes,
// or -1 when the file is unreadable (non-Linux hosts, containers with
// a masked /proc).
func AvailableMemMB() int {
	data, err := os.ReadFile(meminfoPath)
	if err != nil {
		return -1
	}
	return parseAvailableMemMB(string(data))
}

func parseAvailableMemMB(meminfo string) int {
	for _, line := range strings.Split(meminfo, "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return -1
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return -1
		}
		return int(kb / 1024)
	}
	return -1
}
