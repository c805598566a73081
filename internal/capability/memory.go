package capability

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// FallbackMemory is assumed when no platform source is readable (4 GiB).
const FallbackMemory uint64 = 4 << 30

// memorySources lists the files consulted for the memory estimate.
type memorySources struct {
	cgroupV2Max     string
	cgroupV2Current string
	cgroupV1Limit   string
	cgroupV1Usage   string
	meminfo         string
}

var linuxSources = memorySources{
	cgroupV2Max:     "/sys/fs/cgroup/memory.max",
	cgroupV2Current: "/sys/fs/cgroup/memory.current",
	cgroupV1Limit:   "/sys/fs/cgroup/memory/memory.limit_in_bytes",
	cgroupV1Usage:   "/sys/fs/cgroup/memory/memory.usage_in_bytes",
	meminfo:         "/proc/meminfo",
}

// cgroupV1Unlimited is the smallest limit treated as "no limit" on cgroup v1.
const cgroupV1Unlimited = 1 << 60

// EstimateAvailableMemory returns a best-effort estimate of memory this
// process may use: the cgroup headroom when a limit is set, else
// MemAvailable, else FallbackMemory.
func EstimateAvailableMemory() uint64 {
	return estimateFrom(linuxSources)
}

func estimateFrom(src memorySources) uint64 {
	if free, ok := cgroupHeadroom(src.cgroupV2Max, src.cgroupV2Current); ok {
		return free
	}
	if free, ok := cgroupHeadroom(src.cgroupV1Limit, src.cgroupV1Usage); ok {
		return free
	}
	if avail, ok := memAvailable(src.meminfo); ok {
		return avail
	}
	return FallbackMemory
}

// cgroupHeadroom returns limit minus usage when a finite limit is set.
func cgroupHeadroom(limitPath, usagePath string) (uint64, bool) {
	limit, ok := readUint(limitPath)
	if !ok || limit >= cgroupV1Unlimited {
		return 0, false
	}
	usage, _ := readUint(usagePath)
	if usage >= limit {
		return 0, true
	}
	return limit - usage, true
}

func readUint(path string) (uint64, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	s := strings.TrimSpace(string(data))
	if s == "max" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// memAvailable reads MemAvailable (reported in kB) from a meminfo file.
func memAvailable(path string) (uint64, bool) {
	if path == "" {
		return 0, false
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemAvailable:" {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, true
	}
	return 0, false
}
