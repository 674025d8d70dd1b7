package snapshot

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/store"
	"github.com/de-tools/spend-atlas/pkg/store/duckdb"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(total string) *domain.Snapshot {
	return &domain.Snapshot{
		ID:             uuid.New(),
		Timestamp:      time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC),
		Currency:       "USD",
		Rate:           decimal.NewFromInt(1),
		TotalConverted: decimal.RequireFromString(total),
		PerProvider: map[domain.ProviderID]domain.ProviderResult{
			domain.ProviderAWS: {
				Provider:    domain.ProviderAWS,
				TotalCost:   decimal.RequireFromString(total),
				Currency:    "USD",
				TopServices: []domain.ServiceCost{},
				History:     []domain.DailyCost{},
			},
			domain.ProviderAzure: domain.FailedResult(domain.ProviderAzure,
				domain.NewProviderError(domain.ErrorKindCriticalFetch, "403")),
		},
		Alerts: []domain.Alert{},
	}
}

func TestSnapshotStore_SaveReplacesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM snapshots WHERE slot = ?`)).
		WithArgs("latest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO snapshots (slot, payload, created_at) VALUES (?, ?, ?)`)).
		WithArgs("latest", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), sampleSnapshot("10")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_SaveRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM snapshots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO snapshots").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Save(context.Background(), sampleSnapshot("10"))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_LatestNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT CAST\\(payload AS VARCHAR\\) FROM snapshots").
		WithArgs("latest").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err = s.Latest(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotStore_LatestDecodesPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewStore(db)
	require.NoError(t, err)

	want := sampleSnapshot("42.5")
	payload, err := json.Marshal(adapters.MapDomainSnapshotToStore(want))
	require.NoError(t, err)

	mock.ExpectQuery("FROM snapshots").
		WithArgs("latest").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))

	got, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "42.5", got.TotalConverted.String())
	assert.Equal(t, []domain.ProviderID{domain.ProviderAzure}, got.FailedProviders())
}

func TestSnapshotStore_DuckDB(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	s, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Latest(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Save(ctx, sampleSnapshot("10")))
	second := sampleSnapshot("20")
	require.NoError(t, s.Save(ctx, second))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count))
	assert.Equal(t, 1, count)

	got, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "20", got.TotalConverted.String())
}
