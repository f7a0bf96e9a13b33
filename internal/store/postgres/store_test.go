package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/presencelab/presence-scanner/internal/scan"
)

func testRecord() scan.Record {
	return scan.Record{
		ID: "scan-1",
		Restaurant: scan.Restaurant{
			ID:      "r-1",
			Name:    "Taqueria Uno",
			Website: "https://example.com",
		},
		Category:  scan.CategoryComprehensive,
		Status:    scan.StatusPending,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCreateScanInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := testRecord()
	mock.ExpectExec("INSERT INTO scans").
		WithArgs(
			rec.ID, mustJSON(t, rec.Restaurant), "r-1", "comprehensive", "pending",
			rec.CreatedAt, rec.StartedAt, rec.CompletedAt,
			mustJSON(t, rec.Results), rec.WebsiteScore, rec.Composite, rec.Grade, rec.RetryOf, rec.ErrorText,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateScan(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScanUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := testRecord()
	mock.ExpectExec("UPDATE scans").
		WithArgs(
			rec.ID, mustJSON(t, rec.Restaurant), "comprehensive", "pending",
			rec.StartedAt, rec.CompletedAt,
			mustJSON(t, rec.Results), rec.WebsiteScore, rec.Composite, rec.Grade, rec.RetryOf, rec.ErrorText,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, store.UpdateScan(context.Background(), rec), scan.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScanRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := testRecord()
	started := rec.CreatedAt.Add(time.Minute)
	rows := pgxmock.NewRows([]string{
		"id", "restaurant", "category", "status",
		"created_at", "started_at", "completed_at",
		"results", "website_score", "overall_score", "grade", "retry_of", "error_text",
	}).AddRow(
		rec.ID, mustJSON(t, rec.Restaurant), "comprehensive", "in_progress",
		rec.CreatedAt, &started, (*time.Time)(nil),
		mustJSON(t, rec.Results), 72.5, 68.25, "D", "", "",
	)
	mock.ExpectQuery("SELECT .+ FROM scans WHERE id").
		WithArgs("scan-1").
		WillReturnRows(rows)

	got, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	require.Equal(t, scan.StatusInProgress, got.Status)
	require.Equal(t, "Taqueria Uno", got.Restaurant.Name)
	require.NotNil(t, got.StartedAt)
	require.Nil(t, got.CompletedAt)
	require.Equal(t, 68.25, got.Composite)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScanUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM scans WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetScan(context.Background(), "missing")
	require.ErrorIs(t, err, scan.ErrNotFound)
}

func TestListScansByRestaurant(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := testRecord()
	rows := pgxmock.NewRows([]string{
		"id", "restaurant", "category", "status",
		"created_at", "started_at", "completed_at",
		"results", "website_score", "overall_score", "grade", "retry_of", "error_text",
	}).AddRow(
		"scan-2", mustJSON(t, rec.Restaurant), "website_only", "completed",
		rec.CreatedAt.Add(time.Hour), (*time.Time)(nil), (*time.Time)(nil),
		mustJSON(t, rec.Results), 80.0, 80.0, "B", "", "",
	).AddRow(
		"scan-1", mustJSON(t, rec.Restaurant), "comprehensive", "failed",
		rec.CreatedAt, (*time.Time)(nil), (*time.Time)(nil),
		mustJSON(t, rec.Results), 0.0, 0.0, "F", "", "browser init failed",
	)
	mock.ExpectQuery("SELECT .+ FROM scans WHERE restaurant_id").
		WithArgs("r-1").
		WillReturnRows(rows)

	got, err := store.ListScansByRestaurant(context.Background(), "r-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "scan-2", got[0].ID)
	require.Equal(t, scan.StatusFailed, got[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
