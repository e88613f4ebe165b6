package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleClient(key string) model.ClientRecord {
	return model.ClientRecord{
		ClientKey:       key,
		DisplayName:     "João Silva",
		PhoneNormalized: "11999999999",
		SourceSheet:     "Clientes",
		Metadata:        map[string]string{"origin": "indicacao"},
		LastUpdated:     time.Now().UTC(),
	}
}

// --- Clients ---

func TestSQLite_UpsertClient_InsertThenUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertClient(ctx, sampleClient("joão silva_11999999999")))

	n, err := st.CountClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same key again with changed fields: update, never a duplicate.
	updated := sampleClient("joão silva_11999999999")
	updated.SourceSheet = "Clientes-v2"
	require.NoError(t, st.UpsertClient(ctx, updated))

	n, err = st.CountClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := st.GetClient(ctx, "joão silva_11999999999")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Clientes-v2", rec.SourceSheet)
	assert.Equal(t, "indicacao", rec.Metadata["origin"])
}

func TestSQLite_GetClient_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	rec, err := st.GetClient(context.Background(), "nobody_000")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// --- Metrics ---

func TestSQLite_InsertMetrics_ReplayIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	metrics := []model.ClientMetric{
		{ClientKey: "a_1", MetricDate: "2026-08-01", SessionID: "s1", Data: map[string]string{"visits": "3"}, CreatedAt: time.Now().UTC()},
		{ClientKey: "b_2", MetricDate: "2026-08-01", SessionID: "s1", Data: map[string]string{"visits": "1"}, CreatedAt: time.Now().UTC()},
	}

	require.NoError(t, st.InsertMetrics(ctx, metrics))
	// Replaying the same session's metrics must not double-count.
	require.NoError(t, st.InsertMetrics(ctx, metrics))

	var n int
	require.NoError(t, st.db.QueryRow(`SELECT count(*) FROM client_metrics`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSQLite_InsertMetrics_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.InsertMetrics(context.Background(), nil))
}

// --- Sessions ---

func TestSQLite_SessionLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "contatos.xlsx", 2048, model.ModeContacts)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusPending, sess.Status)

	require.NoError(t, st.UpdateSessionStatus(ctx, sess.ID, model.SessionStatusProcessing))
	require.NoError(t, st.CompleteSession(ctx, sess.ID, 42, 1337))

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, got.Status)
	assert.Equal(t, 42, got.ProcessedRecords)
	assert.Equal(t, int64(1337), got.ProcessingTimeMs)
}

func TestSQLite_FailSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "contatos.xlsx", 2048, model.ModeClientData)
	require.NoError(t, err)

	require.NoError(t, st.FailSession(ctx, sess.ID, 7, "connection refused"))

	got, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFailed, got.Status)
	assert.Equal(t, 7, got.ProcessedRecords)
	assert.Equal(t, "connection refused", got.Error)
}

func TestSQLite_UpdateSessionStatus_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateSessionStatus(context.Background(), "missing-id", model.SessionStatusProcessing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestSQLite_ListSessions_FilterAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	s1, err := st.CreateSession(ctx, "a.xlsx", 1, model.ModeContacts)
	require.NoError(t, err)
	_, err = st.CreateSession(ctx, "b.xlsx", 1, model.ModeClientData)
	require.NoError(t, err)
	require.NoError(t, st.UpdateSessionStatus(ctx, s1.ID, model.SessionStatusProcessing))
	require.NoError(t, st.CompleteSession(ctx, s1.ID, 10, 5))

	completed, err := st.ListSessions(ctx, SessionFilter{Status: model.SessionStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "a.xlsx", completed[0].FileName)

	all, err := st.ListSessions(ctx, SessionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// --- Feedback ---

func TestSQLite_FeedbackInsertAndOverride(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	f := model.FeedbackEntry{
		ID:         "fb-1",
		ClientKey:  "joão silva_11999999999",
		Message:    "Obrigado, excelente atendimento!",
		Category:   model.SentimentPositive,
		Confidence: 0.35,
		Scores:     model.SentimentScores{Positive: 3.5},
		Source:     "whatsapp",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.InsertFeedback(ctx, f))

	require.NoError(t, st.OverrideFeedbackCategory(ctx, "fb-1", model.SentimentNeutral))

	var category string
	var isManual bool
	require.NoError(t, st.db.QueryRow(`SELECT category, is_manual FROM feedback WHERE id = ?`, "fb-1").
		Scan(&category, &isManual))
	assert.Equal(t, "neutral", category)
	assert.True(t, isManual)
}

func TestSQLite_FeedbackGeneratesIDs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Entries arrive from the classifier without an id or timestamp; the
	// store must mint both so repeated persists never collide.
	for _, msg := range []string{"pessimo atendimento", "adorei o servico"} {
		require.NoError(t, st.InsertFeedback(ctx, model.FeedbackEntry{
			Message:  msg,
			Category: model.SentimentNeutral,
			Source:   "cli",
		}))
	}

	rows, err := st.db.Query(`SELECT id, created_at FROM feedback`)
	require.NoError(t, err)
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		var createdAt time.Time
		require.NoError(t, rows.Scan(&id, &createdAt))
		assert.NotEmpty(t, id)
		assert.False(t, createdAt.IsZero())
		ids[id] = true
	}
	require.NoError(t, rows.Err())
	assert.Len(t, ids, 2)
}

func TestSQLite_OverrideFeedback_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.OverrideFeedbackCategory(context.Background(), "missing", model.SentimentNegative)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feedback not found")
}
