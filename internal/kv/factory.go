package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spine-analyzer-go/internal/database"

	"github.com/sirupsen/logrus"
)

// Поддерживаемые бэкенды
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendMinio    = "minio"
)

// Options выбор и параметры бэкенда хранилища
type Options struct {
	Backend    string          `yaml:"backend"`
	SQLitePath string          `yaml:"sqlite_path"`
	MySQLDSN   string          `yaml:"mysql_dsn"`
	Postgres   database.Config `yaml:"postgres"`
	Minio      MinioOptions    `yaml:"minio"`
	QuotaBytes int             `yaml:"quota_bytes"`
}

// Open создает хранилище выбранного бэкенда и оборачивает его квотой
func Open(ctx context.Context, opts Options, log *logrus.Logger) (Area, error) {
	area, err := openBackend(ctx, opts, log)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"backend": opts.Backend,
		"quota":   opts.QuotaBytes,
	}).Info("Хранилище записей открыто")

	return WithQuota(area, opts.QuotaBytes), nil
}

func openBackend(ctx context.Context, opts Options, log *logrus.Logger) (Area, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryArea(), nil

	case BackendSQLite:
		if dir := filepath.Dir(opts.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return OpenSQLArea(ctx, DialectSQLite, opts.SQLitePath)

	case BackendMySQL:
		return OpenSQLArea(ctx, DialectMySQL, opts.MySQLDSN)

	case BackendPostgres:
		db, err := database.Connect(opts.Postgres, log)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db, log); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		return NewGormArea(db), nil

	case BackendMinio:
		return NewMinioArea(ctx, opts.Minio)

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
