package service

import (
	"context"
	"net/url"
	"strings"

	"spine-analyzer-go/internal/config"
	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// APIURLKey ключ сохраненного пользователем адреса сервиса инференса
const APIURLKey = "apiUrl"

// SettingsService пользовательские настройки клиента
type SettingsService struct {
	area     kv.Area
	override string
	fallback string
	logger   *logrus.Logger
}

// NewSettingsService создает сервис настроек. override задается конфигурацией и важнее сохраненного значения.
func NewSettingsService(area kv.Area, override, fallback string, logger *logrus.Logger) *SettingsService {
	if strings.TrimSpace(fallback) == "" {
		fallback = config.DefaultAPIURL
	}
	return &SettingsService{
		area:     area,
		override: override,
		fallback: fallback,
		logger:   logger,
	}
}

// Get возвращает действующий адрес и источник, из которого он взят
func (s *SettingsService) Get(ctx context.Context) (*APIURLSetting, error) {
	persisted, err := s.persisted(ctx)
	if err != nil {
		return nil, err
	}

	setting := &APIURLSetting{
		URL:       config.ResolveAPIURL(s.override, persisted, s.fallback),
		Persisted: persisted,
	}
	switch {
	case strings.TrimSpace(s.override) != "":
		setting.Source = "override"
	case persisted != "":
		setting.Source = "persisted"
	default:
		setting.Source = "default"
	}
	return setting, nil
}

// Set сохраняет адрес, введенный пользователем
func (s *SettingsService) Set(ctx context.Context, rawURL string) (*APIURLSetting, error) {
	value := strings.TrimSpace(rawURL)
	if err := validateAPIURL(value); err != nil {
		return nil, err
	}

	if err := s.area.Set(ctx, APIURLKey, []byte(value)); err != nil {
		return nil, &models.StorageError{Op: "save settings", Err: err}
	}

	s.logger.WithField("url", value).Info("Адрес сервиса инференса сохранен")
	return s.Get(ctx)
}

// Reset сохраняет адрес по умолчанию
func (s *SettingsService) Reset(ctx context.Context) (*APIURLSetting, error) {
	if err := s.area.Set(ctx, APIURLKey, []byte(s.fallback)); err != nil {
		return nil, &models.StorageError{Op: "reset settings", Err: err}
	}

	s.logger.WithField("url", s.fallback).Info("Адрес сервиса инференса сброшен")
	return s.Get(ctx)
}

// BaseURL реализует client.BaseURLSource. Ошибка хранилища не мешает запросу.
func (s *SettingsService) BaseURL(ctx context.Context) string {
	persisted, err := s.persisted(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Не удалось прочитать сохраненный адрес сервиса инференса")
	}
	return config.ResolveAPIURL(s.override, persisted, s.fallback)
}

func (s *SettingsService) persisted(ctx context.Context) (string, error) {
	value, ok, err := s.area.Get(ctx, APIURLKey)
	if err != nil {
		return "", &models.StorageError{Op: "load settings", Err: err}
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(string(value)), nil
}

func validateAPIURL(value string) error {
	if value == "" {
		return &models.ValidationError{Field: "url", Reason: "is required"}
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return &models.ValidationError{Field: "url", Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &models.ValidationError{Field: "url", Reason: "must use http or https"}
	}
	if parsed.Host == "" {
		return &models.ValidationError{Field: "url", Reason: "must include a host"}
	}
	return nil
}
