package media

import (
	"strings"
	"time"
)

// JobState represents the lifecycle of a transcode job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

var jobStates = map[JobState]struct{}{
	JobQueued:    {},
	JobRunning:   {},
	JobSucceeded: {},
	JobFailed:    {},
}

// ParseJobState converts a string into a known JobState.
func ParseJobState(value string) (JobState, bool) {
	normalized := JobState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := jobStates[normalized]
	return normalized, ok
}

// IsTerminal reports whether a job state permits no further mutation.
func (s JobState) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Error codes persisted on failed jobs.
const (
	ErrorCodeRetryExhausted = "RETRY_EXHAUSTED"
	ErrorCodeDownloadFailed = "DOWNLOAD_FAILED"
	ErrorCodeFFmpegFailed   = "FFMPEG_FAILED"
	ErrorCodeUploadFailed   = "UPLOAD_FAILED"
	ErrorCodeFinalizeFailed = "FINALIZE_FAILED"
)

// Job represents one transcode request owned by a single worker for its
// duration. Ownership is enforced by the queue lease, not by this record.
type Job struct {
	ID            string
	State         JobState
	OrgID         string
	MediaAssetID  string
	Attempt       int
	Progress      float64
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ErrorCode     string
	ErrorMessage  string
	CorrelationID string
}

// JobUpdate is a partial update applied to a job record; nil fields are left
// untouched.
type JobUpdate struct {
	State         *JobState
	Attempt       *int
	Progress      *float64
	StartedAt     *time.Time
	FinishedAt    *time.Time
	ErrorCode     *string
	ErrorMessage  *string
	CorrelationID *string
}

// IsZero reports whether the update names no fields.
func (u JobUpdate) IsZero() bool {
	return u.State == nil && u.Attempt == nil && u.Progress == nil &&
		u.StartedAt == nil && u.FinishedAt == nil &&
		u.ErrorCode == nil && u.ErrorMessage == nil && u.CorrelationID == nil
}
