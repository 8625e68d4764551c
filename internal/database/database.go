package database

import (
	"context"
	"fmt"
	"time"

	"spine-analyzer-go/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config конфигурация базы данных
type Config struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN строка подключения PostgreSQL
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode,
	)
}

// Connect подключается к базе данных PostgreSQL
func Connect(cfg Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.DSN()), log)
	if err != nil {
		return nil, err
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.WithField("host", cfg.Host).Info("Подключение к PostgreSQL установлено")
	return db, nil
}

// Open открывает gorm поверх произвольного диалекта, SQL-лог пишется через logrus
func Open(dialector gorm.Dialector, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate выполняет автомиграции
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	log.Info("Выполнение миграций базы данных")

	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Миграции базы данных выполнены")
	return nil
}

// Close закрывает соединение с базой данных
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck проверяет состояние подключения к базе данных
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
