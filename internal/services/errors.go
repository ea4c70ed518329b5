package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks permanently malformed input; it is never retried.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks failures worth retrying within the attempt ceiling.
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks a failed external process invocation.
	ErrExternalTool = errors.New("external tool error")
	// ErrDegraded marks an optional step that failed without blocking the job.
	ErrDegraded = errors.New("degraded")
	// ErrExhausted marks a job that consumed its attempt ceiling.
	ErrExhausted = errors.New("retries exhausted")
	// ErrNotFound marks a missing shared record.
	ErrNotFound = errors.New("not found")
	// ErrJobFailed reports that a job reached the failed state and the
	// terminal record write landed. The queue message is left to lapse
	// rather than resolved: the redelivery finds the terminal record and
	// acknowledges as a no-op.
	ErrJobFailed = errors.New("job failed")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a stage error should trigger another pass over
// the same stage rather than failing the job outright.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExhausted), errors.Is(err, ErrNotFound), errors.Is(err, ErrJobFailed):
		return false
	default:
		return true
	}
}

// IsDegraded reports whether an error represents a non-fatal optional step.
func IsDegraded(err error) bool {
	return errors.Is(err, ErrDegraded)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
