package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and
// development use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqldb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	client_key       TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL DEFAULT '',
	phone_normalized TEXT NOT NULL DEFAULT '',
	source_sheet     TEXT NOT NULL DEFAULT '',
	metadata         TEXT,
	last_updated     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS upload_sessions (
	id                 TEXT PRIMARY KEY,
	file_name          TEXT NOT NULL,
	file_size_bytes    INTEGER NOT NULL DEFAULT 0,
	mode               TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	processed_records  INTEGER NOT NULL DEFAULT 0,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	error              TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS client_metrics (
	id          TEXT PRIMARY KEY,
	client_key  TEXT NOT NULL,
	metric_date TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	data        TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (client_key, metric_date, session_id)
);

CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	client_key TEXT,
	message    TEXT NOT NULL,
	category   TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	scores     TEXT,
	source     TEXT,
	is_manual  INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone_normalized);
CREATE INDEX IF NOT EXISTS idx_upload_sessions_status ON upload_sessions(status);
CREATE INDEX IF NOT EXISTS idx_client_metrics_session ON client_metrics(session_id);
CREATE INDEX IF NOT EXISTS idx_feedback_client_key ON feedback(client_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertClient(ctx context.Context, rec model.ClientRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clients (client_key, display_name, phone_normalized, source_sheet, metadata, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_key) DO UPDATE SET
			display_name = excluded.display_name,
			phone_normalized = excluded.phone_normalized,
			source_sheet = excluded.source_sheet,
			metadata = excluded.metadata,
			last_updated = excluded.last_updated`,
		rec.ClientKey, rec.DisplayName, rec.PhoneNormalized, rec.SourceSheet, string(metadata), rec.LastUpdated,
	)
	return eris.Wrapf(err, "sqlite: upsert client %s", rec.ClientKey)
}

func (s *SQLiteStore) GetClient(ctx context.Context, clientKey string) (*model.ClientRecord, error) {
	var rec model.ClientRecord
	var metadata sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT client_key, display_name, phone_normalized, source_sheet, metadata, last_updated
		 FROM clients WHERE client_key = ?`,
		clientKey,
	).Scan(&rec.ClientKey, &rec.DisplayName, &rec.PhoneNormalized, &rec.SourceSheet, &metadata, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get client %s", clientKey)
	}

	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	return &rec, nil
}

func (s *SQLiteStore) CountClients(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM clients`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count clients")
}

func (s *SQLiteStore) InsertMetrics(ctx context.Context, metrics []model.ClientMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin metrics tx")
	}
	defer tx.Rollback()

	for _, m := range metrics {
		data, err := json.Marshal(m.Data)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal metric data")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO client_metrics (id, client_key, metric_date, session_id, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (client_key, metric_date, session_id) DO UPDATE SET data = excluded.data`,
			uuid.New().String(), m.ClientKey, m.MetricDate, m.SessionID, string(data), m.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert metric for %s", m.ClientKey)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit metrics")
}

func (s *SQLiteStore) InsertFeedback(ctx context.Context, f model.FeedbackEntry) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(f.Scores)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scores")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, client_key, message, category, confidence, scores, source, is_manual, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ClientKey, f.Message, string(f.Category), f.Confidence, string(scores), f.Source, f.IsManual, f.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert feedback %s", f.ID)
}

func (s *SQLiteStore) OverrideFeedbackCategory(ctx context.Context, id string, category model.SentimentCategory) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET category = ?, is_manual = 1 WHERE id = ?`,
		string(category), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: override feedback %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("feedback not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, fileName string, fileSizeBytes int64, mode model.IngestMode) (*model.UploadSession, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_sessions (id, file_name, file_size_bytes, mode, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fileName, fileSizeBytes, string(mode), string(model.SessionStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}

	return &model.UploadSession{
		ID:            id,
		FileName:      fileName,
		FileSizeBytes: fileSizeBytes,
		Mode:          mode,
		Status:        model.SessionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, id string, status model.SessionStatus) error {
	return s.updateSession(ctx, id,
		`UPDATE upload_sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
}

func (s *SQLiteStore) CompleteSession(ctx context.Context, id string, processed int, elapsedMs int64) error {
	return s.updateSession(ctx, id,
		`UPDATE upload_sessions SET status = ?, processed_records = ?, processing_time_ms = ?, updated_at = ? WHERE id = ?`,
		string(model.SessionStatusCompleted), processed, elapsedMs, time.Now().UTC(), id,
	)
}

func (s *SQLiteStore) FailSession(ctx context.Context, id string, processed int, cause string) error {
	return s.updateSession(ctx, id,
		`UPDATE upload_sessions SET status = ?, processed_records = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.SessionStatusFailed), processed, cause, time.Now().UTC(), id,
	)
}

func (s *SQLiteStore) updateSession(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.UploadSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, file_size_bytes, mode, status, processed_records, processing_time_ms, error, created_at, updated_at
		 FROM upload_sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row.Scan)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.UploadSession, error) {
	query := `SELECT id, file_name, file_size_bytes, mode, status, processed_records, processing_time_ms, error, created_at, updated_at
		FROM upload_sessions WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var out []model.UploadSession
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, *sess)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sessions")
}

func scanSession(scan func(dest ...any) error) (*model.UploadSession, error) {
	var sess model.UploadSession
	var errMsg sql.NullString
	err := scan(&sess.ID, &sess.FileName, &sess.FileSizeBytes, &sess.Mode, &sess.Status,
		&sess.ProcessedRecords, &sess.ProcessingTimeMs, &errMsg, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		sess.Error = errMsg.String
	}
	return &sess, nil
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)
