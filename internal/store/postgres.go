package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	client_key       TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL DEFAULT '',
	phone_normalized TEXT NOT NULL DEFAULT '',
	source_sheet     TEXT NOT NULL DEFAULT '',
	metadata         JSONB,
	last_updated     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS upload_sessions (
	id                 TEXT PRIMARY KEY,
	file_name          TEXT NOT NULL,
	file_size_bytes    BIGINT NOT NULL DEFAULT 0,
	mode               TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	processed_records  INTEGER NOT NULL DEFAULT 0,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	error              TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS client_metrics (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_key  TEXT NOT NULL,
	metric_date TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	data        JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (client_key, metric_date, session_id)
);

CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	client_key TEXT,
	message    TEXT NOT NULL,
	category   TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	scores     JSONB,
	source     TEXT,
	is_manual  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone_normalized);
CREATE INDEX IF NOT EXISTS idx_upload_sessions_status ON upload_sessions(status);
CREATE INDEX IF NOT EXISTS idx_client_metrics_session ON client_metrics(session_id);
CREATE INDEX IF NOT EXISTS idx_feedback_client_key ON feedback(client_key);
CREATE INDEX IF NOT EXISTS idx_feedback_category ON feedback(category);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertClient(ctx context.Context, rec model.ClientRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO clients (client_key, display_name, phone_normalized, source_sheet, metadata, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (client_key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			phone_normalized = EXCLUDED.phone_normalized,
			source_sheet = EXCLUDED.source_sheet,
			metadata = EXCLUDED.metadata,
			last_updated = EXCLUDED.last_updated`,
		rec.ClientKey, rec.DisplayName, rec.PhoneNormalized, rec.SourceSheet, metadata, rec.LastUpdated,
	)
	return eris.Wrapf(err, "postgres: upsert client %s", rec.ClientKey)
}

func (s *PostgresStore) GetClient(ctx context.Context, clientKey string) (*model.ClientRecord, error) {
	var rec model.ClientRecord
	var metadata []byte

	err := s.pool.QueryRow(ctx,
		`SELECT client_key, display_name, phone_normalized, source_sheet, metadata, last_updated
		 FROM clients WHERE client_key = $1`,
		clientKey,
	).Scan(&rec.ClientKey, &rec.DisplayName, &rec.PhoneNormalized, &rec.SourceSheet, &metadata, &rec.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get client %s", clientKey)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	return &rec, nil
}

func (s *PostgresStore) CountClients(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM clients`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count clients")
}

var metricColumns = []string{"client_key", "metric_date", "session_id", "data", "created_at"}

func (s *PostgresStore) InsertMetrics(ctx context.Context, metrics []model.ClientMetric) error {
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		data, err := json.Marshal(m.Data)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal metric data")
		}
		rows = append(rows, []any{m.ClientKey, m.MetricDate, m.SessionID, data, m.CreatedAt})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "client_metrics",
		Columns:      metricColumns,
		ConflictKeys: []string{"client_key", "metric_date", "session_id"},
		UpdateCols:   []string{"data"},
	}, rows)
	return eris.Wrap(err, "postgres: insert metrics")
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, f model.FeedbackEntry) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(f.Scores)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scores")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback (id, client_key, message, category, confidence, scores, source, is_manual, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, nullable(f.ClientKey), f.Message, string(f.Category), f.Confidence, scores, nullable(f.Source), f.IsManual, f.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert feedback %s", f.ID)
}

func (s *PostgresStore) OverrideFeedbackCategory(ctx context.Context, id string, category model.SentimentCategory) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE feedback SET category = $1, is_manual = TRUE WHERE id = $2`,
		string(category), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: override feedback %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("feedback not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, fileName string, fileSizeBytes int64, mode model.IngestMode) (*model.UploadSession, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO upload_sessions (id, file_name, file_size_bytes, mode, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, fileName, fileSizeBytes, string(mode), string(model.SessionStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
	}

	return &model.UploadSession{
		ID:        id,
		FileName:  fileName,
		FileSizeBytes: fileSizeBytes,
		Mode:      mode,
		Status:    model.SessionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, id string, status model.SessionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_sessions SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update session status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CompleteSession(ctx context.Context, id string, processed int, elapsedMs int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_sessions SET status = $1, processed_records = $2, processing_time_ms = $3, updated_at = $4 WHERE id = $5`,
		string(model.SessionStatusCompleted), processed, elapsedMs, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete session %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailSession(ctx context.Context, id string, processed int, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_sessions SET status = $1, processed_records = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(model.SessionStatusFailed), processed, cause, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail session %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	var sess model.UploadSession
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, file_name, file_size_bytes, mode, status, processed_records, processing_time_ms, error, created_at, updated_at
		 FROM upload_sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.FileName, &sess.FileSizeBytes, &sess.Mode, &sess.Status,
		&sess.ProcessedRecords, &sess.ProcessingTimeMs, &errMsg, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}
	if errMsg != nil {
		sess.Error = *errMsg
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.UploadSession, error) {
	query := `SELECT id, file_name, file_size_bytes, mode, status, processed_records, processing_time_ms, error, created_at, updated_at
		FROM upload_sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []model.UploadSession
	for rows.Next() {
		var sess model.UploadSession
		var errMsg *string
		if err := rows.Scan(&sess.ID, &sess.FileName, &sess.FileSizeBytes, &sess.Mode, &sess.Status,
			&sess.ProcessedRecords, &sess.ProcessingTimeMs, &errMsg, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		if errMsg != nil {
			sess.Error = *errMsg
		}
		out = append(out, sess)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sessions")
}

// nullable maps empty strings to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
