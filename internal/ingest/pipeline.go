// Package ingest turns parsed spreadsheet rows into deduplicated client
// records while tracking session-level progress. Ingestion is at-least-once:
// a failed session leaves committed upserts in place, and re-running the same
// file is safe because client keys are deterministic.
package ingest

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Pipeline consumes RowSets and writes client records, metrics and session
// bookkeeping through the store.
type Pipeline struct {
	store store.Store
}

// New creates a Pipeline backed by the given store.
func New(st store.Store) *Pipeline {
	return &Pipeline{store: st}
}

// Ingest processes all rows for one upload session. The session must be
// pending; it transitions to processing before the first row and ends
// completed or failed. Partial progress is never rolled back: a store outage
// mid-batch marks the session failed and the caller decides whether to
// re-run.
func (p *Pipeline) Ingest(ctx context.Context, session *model.UploadSession, rows RowSet) error {
	if !session.Status.CanTransition(model.SessionStatusProcessing) {
		return eris.Errorf("ingest: session %s is %s, want pending", session.ID, session.Status)
	}
	if rows.Mode() != session.Mode {
		return eris.Errorf("ingest: session %s mode %s does not match row set mode %s",
			session.ID, session.Mode, rows.Mode())
	}

	if err := p.store.UpdateSessionStatus(ctx, session.ID, model.SessionStatusProcessing); err != nil {
		return eris.Wrapf(err, "ingest: session %s to processing", session.ID)
	}
	session.Status = model.SessionStatusProcessing

	log := zap.L().With(
		zap.String("session_id", session.ID),
		zap.String("mode", string(session.Mode)),
	)
	start := time.Now()

	var processed int
	var err error
	switch rs := rows.(type) {
	case ContactRows:
		processed, err = p.ingestContacts(ctx, rs)
	case ClientDataRows:
		processed, err = p.ingestClientData(ctx, session.ID, rs)
	default:
		err = eris.Errorf("ingest: unknown row set type %T", rows)
	}

	session.ProcessedRecords = processed
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		log.Error("ingestion failed", zap.Int("processed", processed), zap.Error(err))
		if failErr := p.store.FailSession(ctx, session.ID, processed, err.Error()); failErr != nil {
			log.Error("could not mark session failed", zap.Error(failErr))
		}
		session.Status = model.SessionStatusFailed
		return err
	}

	if err := p.store.CompleteSession(ctx, session.ID, processed, elapsed); err != nil {
		session.Status = model.SessionStatusFailed
		return eris.Wrapf(err, "ingest: complete session %s", session.ID)
	}
	session.Status = model.SessionStatusCompleted
	session.ProcessingTimeMs = elapsed

	log.Info("ingestion complete",
		zap.Int("processed", processed),
		zap.Int64("elapsed_ms", elapsed),
	)
	return nil
}

// ingestContacts maps each row to one client upsert.
func (p *Pipeline) ingestContacts(ctx context.Context, rows ContactRows) (int, error) {
	processed := 0
	for i, row := range rows {
		rec := contactRecord(row)
		if err := p.store.UpsertClient(ctx, rec); err != nil {
			return processed, eris.Wrapf(err, "ingest: upsert contact row %d", i)
		}
		processed++
	}
	return processed, nil
}

// ingestClientData upserts one client per (date, client) pair and records a
// metrics row keyed on (client_key, date, session_id) so a replay of the same
// session cannot double-count.
func (p *Pipeline) ingestClientData(ctx context.Context, sessionID string, rows ClientDataRows) (int, error) {
	processed := 0
	for _, date := range slices.Sorted(maps.Keys(rows)) {
		clients := rows[date]
		metrics := make([]model.ClientMetric, 0, len(clients))
		for _, clientID := range slices.Sorted(maps.Keys(clients)) {
			row := clients[clientID]

			rec := clientDataRecord(clientID, row)
			if err := p.store.UpsertClient(ctx, rec); err != nil {
				return processed, eris.Wrapf(err, "ingest: upsert client %s (%s)", clientID, date)
			}
			processed++

			metrics = append(metrics, model.ClientMetric{
				ClientKey:  rec.ClientKey,
				MetricDate: date,
				SessionID:  sessionID,
				Data:       row.Data,
				CreatedAt:  time.Now().UTC(),
			})
		}
		if err := p.store.InsertMetrics(ctx, metrics); err != nil {
			return processed, eris.Wrapf(err, "ingest: metrics for %s", date)
		}
	}
	return processed, nil
}

func contactRecord(row ContactRow) model.ClientRecord {
	phone, _ := normalize.Phone(row.Phone)
	return model.ClientRecord{
		ClientKey:       normalize.ClientKey(row.Name, row.Phone),
		DisplayName:     strings.TrimSpace(row.Name),
		PhoneNormalized: phone,
		SourceSheet:     row.Sheet,
		Metadata:        row.Additional,
		LastUpdated:     time.Now().UTC(),
	}
}

func clientDataRecord(clientID string, row ClientDataRow) model.ClientRecord {
	name := row.ClientName
	if strings.TrimSpace(name) == "" {
		name = clientID
	}
	phone, _ := normalize.Phone(row.Phone)
	return model.ClientRecord{
		ClientKey:       normalize.ClientKey(name, row.Phone),
		DisplayName:     strings.TrimSpace(name),
		PhoneNormalized: phone,
		SourceSheet:     row.Sheet,
		Metadata:        row.Data,
		LastUpdated:     time.Now().UTC(),
	}
}
