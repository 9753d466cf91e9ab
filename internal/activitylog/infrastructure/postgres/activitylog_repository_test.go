package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activitylog "engine-monitor/internal/activitylog/domain"
)

func TestInsertFillsIDAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO activity_log`).
		WithArgs(sqlmock.AnyArg(), "budi", activitylog.ActionThresholdUpdated, "RPM upper=2200.00 lower=900.00", "10.0.0.7", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db)
	err = repo.Insert(context.Background(), activitylog.Entry{
		Actor:  "budi",
		Action: activitylog.ActionThresholdUpdated,
		Detail: "RPM upper=2200.00 lower=900.00",
		IP:     "10.0.0.7",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRejectsMissingActor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	err = repo.Insert(context.Background(), activitylog.Entry{Action: "login"})

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSearchFiltersAndPaginates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	createdAt := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_log WHERE actor ILIKE`).
		WithArgs("%threshold%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))
	mock.ExpectQuery(`SELECT id, actor, action, detail, ip, created_at`).
		WithArgs("%threshold%", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "detail", "ip", "created_at"}).
			AddRow("entry-1", "budi", activitylog.ActionThresholdUpdated, "CLT upper=105.00 lower=60.00", nil, createdAt))

	repo := NewRepository(db)
	entries, total, err := repo.List(context.Background(), 2, 10, "threshold")

	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "budi", entries[0].Actor)
	assert.Equal(t, "", entries[0].IP)
	assert.Equal(t, createdAt, entries[0].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithoutSearchUsesPlainQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_log`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT id, actor, action, detail, ip, created_at`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "detail", "ip", "created_at"}))

	repo := NewRepository(db)
	entries, total, err := repo.List(context.Background(), 1, 20, "")

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}
