// Package admission gates new job pickups on host load. It is a yes/no
// check evaluated before each pickup, with no retries or scheduling of its
// own; a denied pickup is simply attempted again on the next poll.
package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"riptide/internal/logging"
)

// Sample is one host load observation.
type Sample struct {
	CPUPercent      float64
	FreeMemoryBytes uint64
}

// Probe measures host load. Implementations may block for the measurement
// window.
type Probe interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemProbe samples real host counters. The short warm-up primes the CPU
// counter deltas so the measurement window reflects current load rather
// than boot-to-now averages.
type SystemProbe struct {
	Warmup time.Duration
	Window time.Duration
}

// NewSystemProbe returns a probe with the standard 0.2s warm-up and 1s
// measurement window.
func NewSystemProbe() SystemProbe {
	return SystemProbe{Warmup: 200 * time.Millisecond, Window: time.Second}
}

func (p SystemProbe) Sample(ctx context.Context) (Sample, error) {
	if p.Warmup > 0 {
		if _, err := cpu.PercentWithContext(ctx, p.Warmup, false); err != nil {
			return Sample{}, err
		}
	}
	percents, err := cpu.PercentWithContext(ctx, p.Window, false)
	if err != nil {
		return Sample{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	sample := Sample{FreeMemoryBytes: vm.Available}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}
	return sample, nil
}

// Controller decides whether the host can absorb another job.
type Controller struct {
	probe        Probe
	cpuThreshold float64
	minFreeBytes uint64
	logger       *slog.Logger
}

// NewController builds a Controller. minFreeMemoryMB converts to bytes here
// so callers deal only in the configured unit.
func NewController(probe Probe, cpuThresholdPercent float64, minFreeMemoryMB uint64, logger *slog.Logger) *Controller {
	return &Controller{
		probe:        probe,
		cpuThreshold: cpuThresholdPercent,
		minFreeBytes: minFreeMemoryMB * 1024 * 1024,
		logger:       logging.NewComponentLogger(logger, "admission"),
	}
}

// CanStart reports whether a new job may begin now. A failed probe denies:
// an unmeasurable host should not take on more work.
func (c *Controller) CanStart(ctx context.Context) bool {
	sample, err := c.probe.Sample(ctx)
	if err != nil {
		c.logger.Warn("load probe failed, denying pickup", logging.Error(err))
		return false
	}
	if sample.CPUPercent >= c.cpuThreshold {
		c.logger.Info("pickup denied on CPU pressure",
			logging.String(logging.FieldEventType, "admission_denied"),
			logging.Float64("cpu_percent", sample.CPUPercent),
			logging.Float64("threshold_percent", c.cpuThreshold),
		)
		return false
	}
	if sample.FreeMemoryBytes <= c.minFreeBytes {
		c.logger.Info("pickup denied on memory pressure",
			logging.String(logging.FieldEventType, "admission_denied"),
			logging.Int64("free_bytes", int64(sample.FreeMemoryBytes)),
			logging.Int64("floor_bytes", int64(c.minFreeBytes)),
		)
		return false
	}
	return true
}
