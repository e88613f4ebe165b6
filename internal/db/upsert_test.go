package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "client_metrics",
		Columns:      []string{"client_key", "metric_date"},
		ConflictKeys: []string{"client_key"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "client_metrics",
		ConflictKeys: []string{"client_key"},
	}, [][]any{{"k", "2026-08-01"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "client_metrics",
		Columns: []string{"client_key", "metric_date"},
	}, [][]any{{"k", "2026-08-01"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_RoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"client_key", "metric_date", "session_id", "data"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_client_metrics"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_client_metrics"}, cols).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "client_metrics" .* ON CONFLICT \("client_key", "metric_date", "session_id"\) DO UPDATE SET "data" = EXCLUDED."data"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "client_metrics",
		Columns:      cols,
		ConflictKeys: []string{"client_key", "metric_date", "session_id"},
	}, [][]any{
		{"joão silva_11999999999", "2026-08-01", "s1", []byte(`{}`)},
		{"maria_11988887777", "2026-08-01", "s1", []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"client_key", "metric_date", "data"})
	assert.Equal(t, `"client_key", "metric_date", "data"`, result)
}
