package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

func newMockedStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewStorage(db), mock
}

func TestStorage_GetHitAndMiss(t *testing.T) {
	s, mock := newMockedStorage(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "session_entries" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
			AddRow(ports.TokenKey, "abc", time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "session_entries" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}))

	v, ok, err := s.Get(ctx, ports.TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok, err = s.Get(ctx, ports.UserKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetPropagatesDriverErrors(t *testing.T) {
	s, mock := newMockedStorage(t)
	mock.ExpectQuery(`SELECT \* FROM "session_entries"`).WillReturnError(errors.New("connection reset"))

	_, _, err := s.Get(context.Background(), ports.TokenKey)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_SetUpserts(t *testing.T) {
	s, mock := newMockedStorage(t)
	mock.ExpectExec(`INSERT INTO "session_entries" .* ON CONFLICT \("key"\) DO UPDATE SET "value"="excluded"."value"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), ports.TokenKey, "abc"))
	require.Error(t, s.Set(context.Background(), " ", "abc"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Delete(t *testing.T) {
	s, mock := newMockedStorage(t)
	mock.ExpectExec(`DELETE FROM "session_entries" WHERE key = \$1`).
		WithArgs(ports.UserKey).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), ports.UserKey))
	require.NoError(t, s.Delete(context.Background(), ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Unconfigured(t *testing.T) {
	var s *Storage
	_, _, err := s.Get(context.Background(), ports.TokenKey)
	require.Error(t, err)
	require.Error(t, NewStorage(nil).Set(context.Background(), ports.TokenKey, "abc"))
}
