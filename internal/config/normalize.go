package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Queue.SQLitePath != "" {
		if c.Queue.SQLitePath, err = expandPath(c.Queue.SQLitePath); err != nil {
			return err
		}
	}

	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	if c.Queue.Backend == "" {
		c.Queue.Backend = defaultQueueBackend
	}
	if c.Queue.PollWaitSeconds <= 0 {
		c.Queue.PollWaitSeconds = defaultPollWaitSeconds
	}
	if c.Queue.VisibilitySeconds <= 0 {
		c.Queue.VisibilitySeconds = defaultVisibilitySeconds
	}

	if c.Transcode.SegmentSeconds <= 0 {
		c.Transcode.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Transcode.KeyframeFrames <= 0 {
		c.Transcode.KeyframeFrames = defaultKeyframeFrames
	}

	if c.Storyboard.TileWidth <= 0 {
		c.Storyboard.TileWidth = defaultTileWidth
	}
	if c.Storyboard.Columns <= 0 {
		c.Storyboard.Columns = defaultColumns
	}
	if c.Storyboard.Capacity <= 0 {
		c.Storyboard.Capacity = defaultCapacity
	}

	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = defaultMaxAttempts
	}
	if c.Worker.LeaseExtensionSeconds <= 0 {
		c.Worker.LeaseExtensionSeconds = defaultLeaseExtension
	}
	if c.Worker.LeaseIntervalSeconds <= 0 {
		c.Worker.LeaseIntervalSeconds = defaultLeaseInterval
	}
	if c.Worker.ErrorBackoffSeconds <= 0 {
		c.Worker.ErrorBackoffSeconds = defaultErrorBackoff
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = defaultConcurrency
	}
	if c.Worker.CPUThresholdPercent <= 0 {
		c.Worker.CPUThresholdPercent = defaultCPUThreshold
	}
	if c.Worker.MinFreeMemoryMB == 0 {
		c.Worker.MinFreeMemoryMB = defaultMinFreeMemoryMB
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
