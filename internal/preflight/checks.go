package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"riptide/internal/config"
	"riptide/internal/transcode"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary verifies that a required executable resolves and runs.
func CheckBinary(ctx context.Context, name, command string) Result {
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found in PATH", command)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, path, "-version").Run(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s failed to run (%v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckHardwareDecoder probes ffmpeg for the configured hardware decoder.
// Advisory: without it the transcoder still works on software decode, just
// slower.
func CheckHardwareDecoder(ctx context.Context, cfg *config.Config) Result {
	const name = "Hardware decoder"
	decoder := cfg.Transcode.HardwareDecoder
	if decoder == "" {
		return Result{Name: name, Passed: true, Advisory: true, Detail: "Not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	available, err := transcode.New(cfg, nil).CheckDecoder(checkCtx)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("probe failed (%v)", err)}
	}
	if !available {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("%s unavailable, software decode fallback", decoder)}
	}
	return Result{Name: name, Passed: true, Advisory: true, Detail: decoder}
}

// CheckDiskSpace verifies the work filesystem has room for at least one
// job's input plus outputs.
func CheckDiskSpace(path string, minFreeGB uint64) Result {
	const name = "Disk space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	freeGB := freeBytes / (1 << 30)
	if minFreeGB > 0 && freeGB < minFreeGB {
		return Result{Name: name, Detail: fmt.Sprintf("%d GB free, need %d GB", freeGB, minFreeGB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d GB free", freeGB)}
}
