package preflight

import (
	"fmt"
	"syscall"

	"github.com/Aman-CERP/amandocs/internal/capability"
)

const (
	// MinDiskSpaceBytes is the minimum free disk space (100MB).
	MinDiskSpaceBytes = 100 * 1024 * 1024
	// MinFileDescriptors is the minimum open file limit.
	MinFileDescriptors = 1024
)

// CheckDiskSpace checks free space on the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", capability.FormatBytes(available))
	if available < MinDiskSpaceBytes {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckFileDescriptors checks the open file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors", Required: true}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckMemory checks memory against the semantic-mode floor. Too little
// memory only means keyword-only search.
func (c *Checker) CheckMemory() CheckResult {
	result := CheckResult{Name: "memory", Required: false}

	floor := c.target.MinMemory
	if floor == 0 {
		floor = capability.DefaultMinMemory
	}
	available := capability.EstimateAvailableMemory()
	result.Message = fmt.Sprintf("%s available (semantic mode needs %s)",
		capability.FormatBytes(available), capability.FormatBytes(floor))
	if available < floor {
		result.Status = StatusWarn
		result.Details = "Search will run keyword-only"
		return result
	}
	result.Status = StatusPass
	return result
}
