package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/pkg/models"

	"gopkg.in/yaml.v3"
)

// DefaultAPIURL адрес сервиса инференса, если ничего не настроено
const DefaultAPIURL = "http://127.0.0.1:5000"

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		Host           string   `yaml:"host"`
		GRPCPort       int      `yaml:"grpc_port"` // 0 отключает gRPC health
		Environment    string   `yaml:"environment"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Inference struct {
		URL        string `yaml:"url"` // явная настройка, важнее сохраненной пользователем
		DefaultURL string `yaml:"default_url"`
		Timeout    int    `yaml:"timeout_seconds"`
	} `yaml:"inference"`
	Storage kv.Options `yaml:"storage"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Models []models.ModelOption `yaml:"models"`
	Upload struct {
		MaxBytes          int64    `yaml:"max_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"upload"`
	Thumbnails struct {
		MaxSize int `yaml:"max_size"`
	} `yaml:"thumbnails"`
}

// Default конфигурация по умолчанию
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = 8080
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Environment = "development"
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Inference.DefaultURL = DefaultAPIURL
	cfg.Inference.Timeout = 300 // 5 минут по умолчанию

	cfg.Storage = kv.Options{
		Backend:    kv.BackendSQLite,
		SQLitePath: "data/records.db",
	}
	cfg.Storage.Postgres.Host = "localhost"
	cfg.Storage.Postgres.Port = "5432"
	cfg.Storage.Postgres.Database = "spine_analyzer"
	cfg.Storage.Postgres.Username = "postgres"
	cfg.Storage.Postgres.SSLMode = "disable"
	cfg.Storage.Minio.Bucket = "spine-records"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Models = []models.ModelOption{
		{ID: "yolov11", Name: "YOLOv11"},
		{ID: "mmdetection", Name: "MMDetection"},
	}

	cfg.Upload.MaxBytes = 150 * 1024 * 1024
	cfg.Upload.AllowedExtensions = []string{".nii", ".gz", ".dcm", ".jpg", ".jpeg", ".png"}

	cfg.Thumbnails.MaxSize = 256

	return cfg
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл, затем переменные окружения
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	for _, m := range c.Models {
		if m.ID == "" {
			return errors.New("model id must not be empty")
		}
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload limit: %d", c.Upload.MaxBytes)
	}
	return nil
}

// ModelIDs идентификаторы настроенных моделей
func (c *Config) ModelIDs() []string {
	ids := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// ResolveAPIURL выбирает адрес сервиса инференса: явная настройка, затем сохраненная
// пользователем, затем значение по умолчанию
func ResolveAPIURL(override, persisted, fallback string) string {
	for _, candidate := range []string{override, persisted, fallback} {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return DefaultAPIURL
}

func applyEnv(cfg *Config) {
	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.GRPCPort = getEnvInt("GRPC_PORT", cfg.Server.GRPCPort)
	cfg.Server.Environment = getEnv("APP_ENV", cfg.Server.Environment)
	cfg.Server.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	// Конфигурация сервиса инференса
	cfg.Inference.URL = getEnv("INFERENCE_API_URL", cfg.Inference.URL)
	cfg.Inference.DefaultURL = getEnv("DEFAULT_API_URL", cfg.Inference.DefaultURL)
	cfg.Inference.Timeout = getEnvInt("INFERENCE_API_TIMEOUT_SECONDS", cfg.Inference.Timeout)

	// Конфигурация хранилища
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.MySQLDSN = getEnv("MYSQL_DSN", cfg.Storage.MySQLDSN)
	cfg.Storage.QuotaBytes = getEnvInt("STORAGE_QUOTA_BYTES", cfg.Storage.QuotaBytes)
	cfg.Storage.Postgres.Host = getEnv("DB_HOST", cfg.Storage.Postgres.Host)
	cfg.Storage.Postgres.Port = getEnv("DB_PORT", cfg.Storage.Postgres.Port)
	cfg.Storage.Postgres.Database = getEnv("DB_NAME", cfg.Storage.Postgres.Database)
	cfg.Storage.Postgres.Username = getEnv("DB_USER", cfg.Storage.Postgres.Username)
	cfg.Storage.Postgres.Password = getEnv("DB_PASSWORD", cfg.Storage.Postgres.Password)
	cfg.Storage.Postgres.SSLMode = getEnv("DB_SSL_MODE", cfg.Storage.Postgres.SSLMode)
	cfg.Storage.Minio.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Storage.Minio.Endpoint)
	cfg.Storage.Minio.Region = getEnv("MINIO_REGION", cfg.Storage.Minio.Region)
	cfg.Storage.Minio.Bucket = getEnv("MINIO_BUCKET", cfg.Storage.Minio.Bucket)
	cfg.Storage.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Storage.Minio.AccessKey)
	cfg.Storage.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Storage.Minio.SecretKey)
	cfg.Storage.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.Storage.Minio.UseSSL)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Upload.MaxBytes = int64(getEnvInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes)))
	cfg.Thumbnails.MaxSize = getEnvInt("THUMBNAIL_MAX_SIZE", cfg.Thumbnails.MaxSize)
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList читает список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ConfigPathFromEnv путь к файлу конфигурации из CONFIG_PATH
func ConfigPathFromEnv() string {
	return os.Getenv("CONFIG_PATH")
}
