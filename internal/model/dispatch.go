package model

import (
	"time"
)

// SendOutcome records one contact's dispatch attempt. A contact appears in
// exactly one of DispatchResult.Sent or DispatchResult.Failed.
type SendOutcome struct {
	Contact   Contact   `json:"contact"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// DispatchResult partitions a dispatch job's contacts into successes and
// failures. len(Sent)+len(Failed) always equals the input size.
type DispatchResult struct {
	Sent   []SendOutcome `json:"sent"`
	Failed []SendOutcome `json:"failed"`
}

// Total returns the number of contacts the job attempted.
func (r *DispatchResult) Total() int {
	return len(r.Sent) + len(r.Failed)
}
