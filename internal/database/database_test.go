package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db, mock
}

func TestPing(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingWithoutDatabase(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
}

func TestMigrateFailsWithoutPgcrypto(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS pgcrypto").WillReturnError(errors.New("permission denied"))

	err := Migrate(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pgcrypto")
	assert.NoError(t, mock.ExpectationsWereMet())
}
