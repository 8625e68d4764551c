package database

import (
	"context"
	"io"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     "5432",
		Database: "spine",
		Username: "spine",
		Password: "secret",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=spine password=secret dbname=spine sslmode=disable", cfg.DSN())
}

func TestHealthCheckAndClose(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	db, err := Open(postgres.New(postgres.Config{Conn: sqlDB}), quietLogger())
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, HealthCheck(context.Background(), db))

	mock.ExpectClose()
	assert.NoError(t, Close(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilConnection(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background(), nil))
	assert.Error(t, Migrate(nil, quietLogger()))
	assert.NoError(t, Close(nil))
}
