package store

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SessionFilter specifies criteria for listing upload sessions.
type SessionFilter struct {
	Status model.SessionStatus `json:"status,omitempty"`
	Mode   model.IngestMode    `json:"mode,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
}

// Store defines the persistence interface for the ingestion and feedback
// subsystems. UpsertClient must be atomic per client key; that atomicity is
// what protects overlapping ingestion calls from creating duplicates.
type Store interface {
	// Clients
	UpsertClient(ctx context.Context, rec model.ClientRecord) error
	GetClient(ctx context.Context, clientKey string) (*model.ClientRecord, error)
	CountClients(ctx context.Context) (int, error)

	// Metrics (append-only, deduplicated on client_key+metric_date+session_id)
	InsertMetrics(ctx context.Context, metrics []model.ClientMetric) error

	// Feedback
	InsertFeedback(ctx context.Context, f model.FeedbackEntry) error
	OverrideFeedbackCategory(ctx context.Context, id string, category model.SentimentCategory) error

	// Upload sessions
	CreateSession(ctx context.Context, fileName string, fileSizeBytes int64, mode model.IngestMode) (*model.UploadSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status model.SessionStatus) error
	CompleteSession(ctx context.Context, id string, processed int, elapsedMs int64) error
	FailSession(ctx context.Context, id string, processed int, cause string) error
	GetSession(ctx context.Context, id string) (*model.UploadSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.UploadSession, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
