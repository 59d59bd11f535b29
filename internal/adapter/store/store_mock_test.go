package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockStore backs a Store with sqlmock through the postgres dialector.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Discard,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestReplaceForecasts_InsertFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "forecasts"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`INSERT INTO "forecasts"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.ReplaceForecasts(context.Background(), forecastRows(2, time.Now().UTC()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert forecasts")
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForecasts_DeleteFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "forecasts"`).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := s.ReplaceForecasts(context.Background(), forecastRows(2, time.Now().UTC()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete forecasts")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForecasts_Commits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "forecasts"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "forecasts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceForecasts(context.Background(), forecastRows(2, time.Now().UTC())))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckReadiness_PingFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := s.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReady_SchemaFailureClosesPool(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Discard,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	// No statement is expected, so the schema check and CREATE TABLE both fail.
	mock.ExpectClose()

	s, err := ready(context.Background(), db, "postgres", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "create table")
	require.NoError(t, mock.ExpectationsWereMet())
}
