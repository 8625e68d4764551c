package kv

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// exerciseArea общий сценарий для всех бэкендов с настоящим хранилищем
func exerciseArea(t *testing.T, area Area) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := area.Get(ctx, "analysisRecords")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, area.Set(ctx, "analysisRecords", []byte(`[{"id":"a"}]`)))
	value, ok, err := area.Get(ctx, "analysisRecords")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(value))

	require.NoError(t, area.Set(ctx, "analysisRecords", []byte(`[]`)))
	value, _, err = area.Get(ctx, "analysisRecords")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))

	require.NoError(t, area.Remove(ctx, "analysisRecords"))
	_, ok, err = area.Get(ctx, "analysisRecords")
	require.NoError(t, err)
	assert.False(t, ok)

	// повторное удаление не ошибка
	require.NoError(t, area.Remove(ctx, "analysisRecords"))
}

func TestMemoryArea(t *testing.T) {
	exerciseArea(t, NewMemoryArea())
}

func TestMemoryAreaCopiesValues(t *testing.T) {
	ctx := context.Background()
	area := NewMemoryArea()

	value := []byte("abc")
	require.NoError(t, area.Set(ctx, "k", value))
	value[0] = 'x'

	got, _, err := area.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _, _ := area.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestWithQuota(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryArea()
	area := WithQuota(inner, 4)

	require.NoError(t, area.Set(ctx, "k", []byte("1234")))

	err := area.Set(ctx, "k", []byte("12345"))
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	// предыдущее значение не изменилось
	value, ok, err := area.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234", string(value))

	assert.Same(t, inner, WithQuota(inner, 0))
	assert.NoError(t, Ping(ctx, area))
	assert.NoError(t, CloseIfSupported(area))
}

func TestSQLiteArea(t *testing.T) {
	ctx := context.Background()
	area, err := OpenSQLArea(ctx, DialectSQLite, filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer area.Close()

	exerciseArea(t, area)
	assert.NoError(t, Ping(ctx, area))
}

func TestSQLiteAreaSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	area, err := OpenSQLArea(ctx, DialectSQLite, path)
	require.NoError(t, err)
	require.NoError(t, area.Set(ctx, "apiUrl", []byte("http://10.0.0.5:5000")))
	require.NoError(t, area.Close())

	reopened, err := OpenSQLArea(ctx, DialectSQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "apiUrl")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://10.0.0.5:5000", string(value))
}

func TestOpenFactory(t *testing.T) {
	ctx := context.Background()

	area, err := Open(ctx, Options{Backend: BackendMemory, QuotaBytes: 8}, quietLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, area.Set(ctx, "k", []byte("123456789")), ErrQuotaExceeded)

	area, err = Open(ctx, Options{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "records.db"),
	}, quietLogger())
	require.NoError(t, err)
	exerciseArea(t, area)
	require.NoError(t, CloseIfSupported(area))

	_, err = Open(ctx, Options{Backend: "floppy"}, quietLogger())
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendMySQL}, quietLogger())
	assert.Error(t, err)
}
