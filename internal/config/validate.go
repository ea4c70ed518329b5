package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cross-field constraints that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	switch c.Queue.Backend {
	case "sqs":
		if strings.TrimSpace(c.Queue.URL) == "" {
			problems = append(problems, "queue.url is required for the sqs backend")
		}
	case "sqlite":
		if strings.TrimSpace(c.Queue.SQLitePath) == "" {
			problems = append(problems, "queue.sqlite_path is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("queue.backend %q is not supported (sqs, sqlite)", c.Queue.Backend))
	}

	// The renewal interval must leave margin before the extension lapses or
	// the message becomes visible mid-job.
	if c.Worker.LeaseIntervalSeconds >= c.Worker.LeaseExtensionSeconds {
		problems = append(problems, "worker.lease_interval_seconds must be less than worker.lease_extension_seconds")
	}

	// Keyframes must land exactly on segment boundaries so each segment is
	// independently decodable: keyframe_frames / segment_seconds is the assumed
	// whole frame rate (180 / 6 = 30 fps).
	if c.Transcode.KeyframeFrames%c.Transcode.SegmentSeconds != 0 {
		problems = append(problems, "transcode.keyframe_frames must divide evenly by transcode.segment_seconds")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
