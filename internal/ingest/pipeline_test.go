package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// fakeStore is an in-memory store.Store for pipeline tests. failAfter, when
// set, fails the Nth client upsert (1-based) to simulate a mid-batch outage.
type fakeStore struct {
	clients   map[string]model.ClientRecord
	metrics   []model.ClientMetric
	sessions  map[string]*model.UploadSession
	upserts   int
	failAfter int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:  make(map[string]model.ClientRecord),
		sessions: make(map[string]*model.UploadSession),
	}
}

func (f *fakeStore) UpsertClient(_ context.Context, rec model.ClientRecord) error {
	f.upserts++
	if f.failAfter > 0 && f.upserts >= f.failAfter {
		return eris.New("connection refused")
	}
	f.clients[rec.ClientKey] = rec
	return nil
}

func (f *fakeStore) GetClient(_ context.Context, key string) (*model.ClientRecord, error) {
	rec, ok := f.clients[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) CountClients(_ context.Context) (int, error) {
	return len(f.clients), nil
}

func (f *fakeStore) InsertMetrics(_ context.Context, metrics []model.ClientMetric) error {
	f.metrics = append(f.metrics, metrics...)
	return nil
}

func (f *fakeStore) InsertFeedback(_ context.Context, _ model.FeedbackEntry) error { return nil }

func (f *fakeStore) OverrideFeedbackCategory(_ context.Context, _ string, _ model.SentimentCategory) error {
	return nil
}

func (f *fakeStore) CreateSession(_ context.Context, fileName string, size int64, mode model.IngestMode) (*model.UploadSession, error) {
	s := &model.UploadSession{
		ID:       "session-" + fileName,
		FileName: fileName, FileSizeBytes: size, Mode: mode,
		Status:    model.SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) UpdateSessionStatus(_ context.Context, id string, status model.SessionStatus) error {
	f.sessions[id].Status = status
	return nil
}

func (f *fakeStore) CompleteSession(_ context.Context, id string, processed int, elapsedMs int64) error {
	s := f.sessions[id]
	s.Status = model.SessionStatusCompleted
	s.ProcessedRecords = processed
	s.ProcessingTimeMs = elapsedMs
	return nil
}

func (f *fakeStore) FailSession(_ context.Context, id string, processed int, cause string) error {
	s := f.sessions[id]
	s.Status = model.SessionStatusFailed
	s.ProcessedRecords = processed
	s.Error = cause
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.UploadSession, error) {
	return f.sessions[id], nil
}

func (f *fakeStore) ListSessions(_ context.Context, _ store.SessionFilter) ([]model.UploadSession, error) {
	return nil, nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Ping(_ context.Context) error    { return nil }
func (f *fakeStore) Close() error                    { return nil }

var _ store.Store = (*fakeStore)(nil)

func newPendingSession(t *testing.T, st *fakeStore, mode model.IngestMode) *model.UploadSession {
	t.Helper()
	s, err := st.CreateSession(context.Background(), "upload.xlsx", 1024, mode)
	require.NoError(t, err)
	return s
}

func TestIngest_ContactsDeduplicates(t *testing.T) {
	st := newFakeStore()
	p := New(st)
	session := newPendingSession(t, st, model.ModeContacts)

	// Same person twice with case and phone-formatting variation.
	rows := ContactRows{
		{Name: "João Silva", Phone: "11999999999", Sheet: "Clientes"},
		{Name: "joão silva", Phone: "(11) 99999-9999", Sheet: "Clientes"},
	}

	require.NoError(t, p.Ingest(context.Background(), session, rows))

	assert.Len(t, st.clients, 1)
	assert.Equal(t, 2, session.ProcessedRecords)
	assert.Equal(t, model.SessionStatusCompleted, session.Status)

	rec := st.clients["joão silva_11999999999"]
	assert.Equal(t, "11999999999", rec.PhoneNormalized)
	assert.Equal(t, "Clientes", rec.SourceSheet)
}

func TestIngest_ReRunIsIdempotent(t *testing.T) {
	st := newFakeStore()
	p := New(st)

	rows := ContactRows{
		{Name: "Maria", Phone: "11988887777"},
		{Name: "José", Phone: "011 97777-6666"},
	}

	first := newPendingSession(t, st, model.ModeContacts)
	require.NoError(t, p.Ingest(context.Background(), first, rows))
	countAfterFirst := len(st.clients)

	second, err := st.CreateSession(context.Background(), "upload-again.xlsx", 1024, model.ModeContacts)
	require.NoError(t, err)
	require.NoError(t, p.Ingest(context.Background(), second, rows))

	assert.Equal(t, countAfterFirst, len(st.clients), "re-ingesting the same file must not create records")
	assert.Equal(t, 2, second.ProcessedRecords, "but each session counts its own rows")
}

func TestIngest_ClientDataRecordsMetrics(t *testing.T) {
	st := newFakeStore()
	p := New(st)
	session := newPendingSession(t, st, model.ModeClientData)

	rows := ClientDataRows{
		"2026-08-01": {
			"c1": {ClientName: "Ana Souza", Phone: "11911112222", Data: map[string]string{"visits": "3"}},
			"c2": {ClientName: "Bruno Lima", Phone: "11933334444", Data: map[string]string{"visits": "1"}},
		},
		"2026-08-02": {
			"c1": {ClientName: "Ana Souza", Phone: "11911112222", Data: map[string]string{"visits": "5"}},
		},
	}

	require.NoError(t, p.Ingest(context.Background(), session, rows))

	assert.Len(t, st.clients, 2, "same client on two dates upserts once")
	assert.Equal(t, 3, session.ProcessedRecords)
	require.Len(t, st.metrics, 3)
	for _, m := range st.metrics {
		assert.Equal(t, session.ID, m.SessionID)
		assert.NotEmpty(t, m.MetricDate)
	}
}

func TestIngest_RequiresPendingSession(t *testing.T) {
	st := newFakeStore()
	p := New(st)
	session := newPendingSession(t, st, model.ModeContacts)
	session.Status = model.SessionStatusCompleted

	err := p.Ingest(context.Background(), session, ContactRows{{Name: "x", Phone: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want pending")
	assert.Zero(t, st.upserts, "no rows processed on a precondition failure")
}

func TestIngest_ModeMismatch(t *testing.T) {
	st := newFakeStore()
	p := New(st)
	session := newPendingSession(t, st, model.ModeClientData)

	err := p.Ingest(context.Background(), session, ContactRows{{Name: "x", Phone: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestIngest_StoreFailureMarksSessionFailed(t *testing.T) {
	st := newFakeStore()
	st.failAfter = 2
	p := New(st)
	session := newPendingSession(t, st, model.ModeContacts)

	rows := ContactRows{
		{Name: "Primeiro", Phone: "11911110001"},
		{Name: "Segundo", Phone: "11911110002"},
		{Name: "Terceiro", Phone: "11911110003"},
	}

	err := p.Ingest(context.Background(), session, rows)
	require.Error(t, err)

	assert.Equal(t, model.SessionStatusFailed, session.Status)
	assert.Equal(t, 1, session.ProcessedRecords)
	// At-least-once: the committed upsert is not rolled back.
	assert.Len(t, st.clients, 1)
	assert.NotEmpty(t, st.sessions[session.ID].Error)
}

func TestIngest_PartialRowsStillProcess(t *testing.T) {
	st := newFakeStore()
	p := New(st)
	session := newPendingSession(t, st, model.ModeContacts)

	rows := ContactRows{
		{Name: "", Phone: "11999990000"},
		{Name: "Sem Telefone", Phone: ""},
	}

	require.NoError(t, p.Ingest(context.Background(), session, rows))
	assert.Equal(t, 2, session.ProcessedRecords)
	assert.Contains(t, st.clients, "_11999990000")
	assert.Contains(t, st.clients, "sem telefone_")
}
