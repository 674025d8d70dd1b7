package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/store/duckdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(started time.Time, failed ...domain.ProviderID) domain.RunRecord {
	return domain.RunRecord{
		ID:              uuid.New(),
		StartedAt:       started,
		FinishedAt:      started.Add(3 * time.Second),
		State:           domain.RunStateCompleted,
		Total:           decimal.RequireFromString("17.25"),
		Currency:        "USD",
		FailedProviders: failed,
	}
}

func TestRunStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runs, err := NewRunStore(db)
	require.NoError(t, err)

	run := sampleRun(time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC), domain.ProviderGCP)
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(run.ID.String(), run.StartedAt, run.FinishedAt, "completed", "17.25", "USD", "gcp").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, runs.Record(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_ListDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runs, err := NewRunStore(db)
	require.NoError(t, err)

	started := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	id := uuid.New()
	mock.ExpectQuery("FROM runs").
		WithArgs(DefaultRunLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "finished_at", "state", "total", "currency", "failed_providers"}).
			AddRow(id.String(), started, started.Add(time.Second), "completed", "3.5", "EUR", "aws,azure"))

	got, err := runs.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, []domain.ProviderID{domain.ProviderAWS, domain.ProviderAzure}, got[0].FailedProviders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStore_DuckDB(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	runs, err := NewRunStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, runs.Record(ctx, sampleRun(base.Add(time.Duration(i)*6*time.Hour))))
	}

	got, err := runs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartedAt.After(got[1].StartedAt))
	assert.Empty(t, got[0].FailedProviders)
}
