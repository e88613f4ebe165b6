package model

import (
	"time"
)

// SessionStatus represents the lifecycle state of an upload session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// IngestMode selects how spreadsheet rows are interpreted.
type IngestMode string

const (
	ModeClientData IngestMode = "client_data" // rows grouped by date, then client
	ModeContacts   IngestMode = "contacts"    // one row per contact
)

// ValidIngestMode reports whether m is a recognized mode string.
func ValidIngestMode(m string) bool {
	switch IngestMode(m) {
	case ModeClientData, ModeContacts:
		return true
	}
	return false
}

// UploadSession tracks one ingestion job. Status moves pending -> processing
// -> completed|failed and never reverts. Sessions are kept indefinitely;
// retention is an operator concern.
type UploadSession struct {
	ID               string        `json:"id"`
	FileName         string        `json:"file_name"`
	FileSizeBytes    int64         `json:"file_size_bytes"`
	Mode             IngestMode    `json:"mode"`
	Status           SessionStatus `json:"status"`
	ProcessedRecords int           `json:"processed_records"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CanTransition reports whether a status change is allowed by the monotonic
// session lifecycle.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return to == SessionStatusProcessing
	case SessionStatusProcessing:
		return to == SessionStatusCompleted || to == SessionStatusFailed
	}
	return false
}
