package model

import (
	"time"
)

// ClientRecord is a deduplicated contact. ClientKey is derived from the
// normalized name and phone and is the upsert target: the same person seen
// across uploads always lands on the same row.
type ClientRecord struct {
	ClientKey       string            `json:"client_key"`
	DisplayName     string            `json:"display_name"`
	PhoneNormalized string            `json:"phone_normalized"`
	SourceSheet     string            `json:"source_sheet,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	LastUpdated     time.Time         `json:"last_updated"`
}

// ClientMetric is one reporting-dimension row attached to a client. The
// (client_key, metric_date, session_id) triple is unique so replaying an
// upload session cannot double-count.
type ClientMetric struct {
	ClientKey  string            `json:"client_key"`
	MetricDate string            `json:"metric_date"`
	SessionID  string            `json:"session_id"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Contact is a dispatch target. Phone is already normalized by the caller.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
