package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/Aman-CERP/leedrag/internal/logging"
	"github.com/Aman-CERP/leedrag/internal/profiling"
)

// MinLogDiskSpaceBytes is the free space wanted for rotated logs (100MB).
const MinLogDiskSpaceBytes = 100 * 1024 * 1024

// CheckLogDir checks that the log directory is writable and has room for
// rotated logs. Serving works without it but logs are lost.
func (c *Checker) CheckLogDir() CheckResult {
	result := CheckResult{
		Name:     "log_dir",
		Required: false,
	}

	dir := c.logDir
	if dir == "" {
		dir = logging.DefaultLogDir()
	}
	result.Details = dir

	if err := logging.EnsureLogDir(dir); err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}

	testFile := filepath.Join(dir, ".leedrag-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("writable, %s free", profiling.FormatBytes(available))
	if available < MinLogDiskSpaceBytes {
		result.Status = StatusWarn
		result.Message += " (minimum: 100 MB)"
		return result
	}

	result.Status = StatusPass
	return result
}
