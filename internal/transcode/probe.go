package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"riptide/internal/services"
)

// ProbeResult describes the source media.
type ProbeResult struct {
	Duration time.Duration
	Width    int
	Height   int
}

// Probe inspects a local media file with ffprobe.
func Probe(ctx context.Context, ffprobe, path string) (ProbeResult, error) {
	duration, err := probeDuration(ctx, ffprobe, path)
	if err != nil {
		return ProbeResult{}, err
	}
	width, height, err := probeDimensions(ctx, ffprobe, path)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{Duration: duration, Width: width, Height: height}, nil
}

func probeDuration(ctx context.Context, ffprobe, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "probe", "ffprobe duration", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "probe", "parse duration", strings.TrimSpace(string(out)), err)
	}
	if seconds <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "probe", "duration", "source reports non-positive duration", nil)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func probeDimensions(ctx context.Context, ffprobe, path string) (int, int, error) {
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, services.Wrap(services.ErrExternalTool, "probe", "ffprobe dimensions", path, err)
	}
	fields := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(fields) != 2 {
		return 0, 0, services.Wrap(services.ErrExternalTool, "probe", "parse dimensions", strings.TrimSpace(string(out)), nil)
	}
	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse height: %w", err)
	}
	return width, height, nil
}
