package kv

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mysqlDB   *sql.DB
	mysqlMock sqlmock.Sqlmock
)

func setUp() {
	mysqlDB, mysqlMock, _ = sqlmock.New()
}

func tearDown() {
	mysqlDB.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func newMockedMySQLArea(t *testing.T) *SQLArea {
	t.Helper()
	mysqlMock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	area, err := NewSQLArea(context.Background(), mysqlDB, DialectMySQL)
	require.NoError(t, err)
	return area
}

func TestMySQLAreaGet(t *testing.T) {
	it(func() {
		area := newMockedMySQLArea(t)
		query := regexp.QuoteMeta("SELECT payload FROM kv_entries WHERE entry_key = ?")

		mysqlMock.ExpectQuery(query).WithArgs("analysisRecords").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))
		value, ok, err := area.Get(context.Background(), "analysisRecords")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, string(value))

		mysqlMock.ExpectQuery(query).WithArgs("apiUrl").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}))
		_, ok, err = area.Get(context.Background(), "apiUrl")
		require.NoError(t, err)
		assert.False(t, ok)

		mysqlMock.ExpectQuery(query).WithArgs("analysisRecords").
			WillReturnError(errors.New("connection reset"))
		_, _, err = area.Get(context.Background(), "analysisRecords")
		assert.Error(t, err)

		assert.NoError(t, mysqlMock.ExpectationsWereMet())
	})
}

func TestMySQLAreaSetAndRemove(t *testing.T) {
	it(func() {
		area := newMockedMySQLArea(t)

		mysqlMock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE payload = VALUES(payload)")).
			WithArgs("analysisRecords", []byte(`[]`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, area.Set(context.Background(), "analysisRecords", []byte(`[]`)))

		mysqlMock.ExpectExec(regexp.QuoteMeta("DELETE FROM kv_entries WHERE entry_key = ?")).
			WithArgs("analysisRecords").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, area.Remove(context.Background(), "analysisRecords"))

		mysqlMock.ExpectExec("INSERT INTO kv_entries").
			WillReturnError(errors.New("disk full"))
		assert.Error(t, area.Set(context.Background(), "analysisRecords", []byte(`[]`)))

		assert.NoError(t, mysqlMock.ExpectationsWereMet())
	})
}

func TestNewSQLAreaRejectsUnknownDialect(t *testing.T) {
	it(func() {
		_, err := NewSQLArea(context.Background(), mysqlDB, Dialect("oracle"))
		assert.Error(t, err)
	})
}
