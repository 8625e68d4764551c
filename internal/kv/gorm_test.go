package kv

import (
	"context"
	"testing"
	"time"

	"spine-analyzer-go/internal/database"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func newMockedGormArea(t *testing.T) (*GormArea, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := database.Open(postgres.New(postgres.Config{Conn: sqlDB}), quietLogger())
	require.NoError(t, err)
	return NewGormArea(db), mock
}

func TestGormAreaGet(t *testing.T) {
	area, mock := newMockedGormArea(t)
	columns := []string{"entry_key", "payload", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE entry_key = \$1`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("analysisRecords", []byte(`[]`), time.Now(), time.Now()))
	value, ok, err := area.Get(context.Background(), "analysisRecords")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(value))

	mock.ExpectQuery(`SELECT \* FROM "kv_entries" WHERE entry_key = \$1`).
		WillReturnRows(sqlmock.NewRows(columns))
	_, ok, err = area.Get(context.Background(), "apiUrl")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAreaSetAndRemove(t *testing.T) {
	area, mock := newMockedGormArea(t)

	mock.ExpectExec(`INSERT INTO "kv_entries" .* ON CONFLICT \("entry_key"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, area.Set(context.Background(), "analysisRecords", []byte(`[]`)))

	mock.ExpectExec(`DELETE FROM "kv_entries" WHERE entry_key = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, area.Remove(context.Background(), "analysisRecords"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
