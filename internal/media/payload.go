package media

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"riptide/internal/services"
)

// Payload is the queue message body referencing a job. Delivery is
// at-least-once; a payload missing any field is permanently invalid and must
// be discarded rather than retried.
type Payload struct {
	JobID   string `json:"job_id"`
	MediaID string `json:"media_id"`
	OrgID   string `json:"org_id"`
}

// ParsePayload decodes and validates a queue message body.
func ParsePayload(body []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Payload{}, services.Wrap(services.ErrValidation, "dispatch", "parse message", "message body is not valid JSON", err)
	}
	if err := payload.Validate(); err != nil {
		return Payload{}, err
	}
	return payload, nil
}

// Validate checks that every identifier is present and UUID-shaped.
func (p Payload) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"job_id", p.JobID},
		{"media_id", p.MediaID},
		{"org_id", p.OrgID},
	} {
		trimmed := strings.TrimSpace(field.value)
		if trimmed == "" {
			return services.Wrap(services.ErrValidation, "dispatch", "validate message",
				fmt.Sprintf("missing %s", field.name), nil)
		}
		if _, err := uuid.Parse(trimmed); err != nil {
			return services.Wrap(services.ErrValidation, "dispatch", "validate message",
				fmt.Sprintf("%s is not a valid identifier", field.name), err)
		}
	}
	return nil
}
