package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Version версия клиента, отдается в health
const Version = "1.0.0"

// Inference операции сервиса инференса
type Inference interface {
	Analyze(ctx context.Context, file codec.File, model string) (json.RawMessage, error)
	ProcessFile(ctx context.Context, file codec.File) ([]codec.File, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// AnalyzerService сервис для анализа снимков позвоночника
type AnalyzerService struct {
	inference Inference
	records   *RecordService
	storage   kv.Area
	geoCalc   *geo.Calculator
	models    []models.ModelOption
	policy    UploadPolicy
	logger    *logrus.Logger
}

// NewAnalyzerService создает новый сервис анализатора
func NewAnalyzerService(
	inference Inference,
	records *RecordService,
	storage kv.Area,
	geoCalc *geo.Calculator,
	modelOptions []models.ModelOption,
	policy UploadPolicy,
	logger *logrus.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		inference: inference,
		records:   records,
		storage:   storage,
		geoCalc:   geoCalc,
		models:    modelOptions,
		policy:    policy,
		logger:    logger,
	}
}

// Models модели, доступные для выбора
func (s *AnalyzerService) Models() []models.ModelOption {
	return s.models
}

// Policy ограничения на загружаемые файлы
func (s *AnalyzerService) Policy() UploadPolicy {
	return s.policy
}

// IsVolumetric сообщает, нужно ли нарезать файл на срезы
func IsVolumetric(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".nii") ||
		strings.HasSuffix(lower, ".nii.gz") ||
		strings.HasSuffix(lower, ".dcm")
}

// ValidateUpload проверяет расширение и размер загружаемого файла
func (s *AnalyzerService) ValidateUpload(file codec.File) error {
	if file.Name == "" || len(file.Data) == 0 {
		return &models.ValidationError{Field: "file", Reason: "is required"}
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	allowed := false
	for _, candidate := range s.policy.AllowedExtensions {
		if ext == strings.ToLower(candidate) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &models.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("invalid file type. Allowed types: %s", strings.Join(s.policy.AllowedExtensions, ", ")),
		}
	}

	if s.policy.MaxBytes > 0 && file.Size() > s.policy.MaxBytes {
		return &models.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("file size too large. Maximum size is %dMB", s.policy.MaxBytes/(1024*1024)),
		}
	}
	return nil
}

// PrepareSlices готовит срезы к показу: объемные снимки режутся сервисом, обычные изображения идут одним срезом
func (s *AnalyzerService) PrepareSlices(ctx context.Context, file codec.File) ([]codec.File, error) {
	if err := s.ValidateUpload(file); err != nil {
		return nil, err
	}

	if !IsVolumetric(file.Name) {
		if file.ContentType == "" {
			file.ContentType = codec.DetectContentType(file.Data)
		}
		return []codec.File{file}, nil
	}

	s.logger.WithField("file", file.Name).Info("Нарезка объемного снимка")
	slices, err := s.inference.ProcessFile(ctx, file)
	if err != nil {
		s.logger.WithError(err).Error("Ошибка нарезки снимка")
		return nil, err
	}
	return slices, nil
}

// SliceViews кодирует срезы в data URL для показа
func SliceViews(slices []codec.File) ([]SliceView, error) {
	views := make([]SliceView, 0, len(slices))
	for i, slice := range slices {
		dataURL, err := codec.EncodeImage(slice)
		if err != nil {
			return nil, err
		}
		views = append(views, SliceView{
			Index:       i,
			Name:        slice.Name,
			ContentType: codec.MediaType(dataURL),
			DataURL:     dataURL,
		})
	}
	return views, nil
}

// Analyze отправляет изображение на анализ и при save сохраняет запись
func (s *AnalyzerService) Analyze(ctx context.Context, file codec.File, model string, save bool) (*AnalyzeResponse, error) {
	if !s.knownModel(model) {
		return nil, &models.ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", model)}
	}
	if err := s.ValidateUpload(file); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"file":  file.Name,
		"model": model,
	}).Info("Начинаем анализ снимка")

	raw, err := s.inference.Analyze(ctx, file, model)
	if err != nil {
		s.logger.WithError(err).Error("Ошибка при обращении к сервису инференса")
		return nil, err
	}

	result, err := models.ParseAnalysisResult(raw)
	if err != nil {
		s.logger.WithError(err).Error("Сервис инференса вернул некорректный результат")
		return nil, err
	}

	response := &AnalyzeResponse{
		Model:   model,
		Result:  raw,
		Summary: s.geoCalc.AngleSummary(result.Segments),
	}

	if save {
		record, err := s.records.Save(ctx, file, raw, model)
		if err != nil {
			return nil, err
		}
		response.Record = record
	}

	s.logger.WithFields(logrus.Fields{
		"segments": len(result.Segments),
		"angles":   len(response.Summary),
	}).Info("Анализ завершен")
	return response, nil
}

// CheckHealth проверяет состояние сервиса инференса и хранилища
func (s *AnalyzerService) CheckHealth(ctx context.Context) *models.HealthResponse {
	s.logger.Debug("Проверяем состояние сервиса анализатора")

	response := &models.HealthResponse{Status: "healthy", Storage: "ok", Version: Version}

	if err := kv.Ping(ctx, s.storage); err != nil {
		s.logger.WithError(err).Error("Хранилище записей недоступно")
		response.Storage = "unavailable"
		response.Status = "unhealthy"
	}

	if _, err := s.inference.CheckHealth(ctx); err != nil {
		s.logger.WithError(err).Error("Сервис инференса недоступен")
		response.Status = "unhealthy"
	}

	return response
}

func (s *AnalyzerService) knownModel(model string) bool {
	for _, option := range s.models {
		if option.ID == model {
			return true
		}
	}
	return false
}
