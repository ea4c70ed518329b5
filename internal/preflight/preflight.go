package preflight

import (
	"context"

	"riptide/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Advisory bool
	Detail   string
}

// RunAll executes every check applicable to the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckBinary(ctx, "FFmpeg", cfg.FFmpegBinary()),
		CheckBinary(ctx, "FFprobe", cfg.FFprobeBinary()),
		CheckHardwareDecoder(ctx, cfg),
		CheckDiskSpace(cfg.Paths.WorkDir, cfg.Worker.MinFreeDiskGB),
	}
}

// Passed reports whether every required check succeeded. Advisory checks
// never block.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Advisory {
			return false
		}
	}
	return true
}
