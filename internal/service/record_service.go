package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/internal/imaging"
	"spine-analyzer-go/internal/metrics"
	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// RecordService сервис для работы с архивом записей анализа.
// Изменяющие операции выполняются строго по одной.
type RecordService struct {
	repo      repository.RecordRepository
	calc      *geo.Calculator
	thumbSize int
	logger    *logrus.Logger

	mu sync.Mutex
}

// NewRecordService создает новый сервис для работы с записями
func NewRecordService(repo repository.RecordRepository, calc *geo.Calculator, thumbSize int, logger *logrus.Logger) *RecordService {
	return &RecordService{
		repo:      repo,
		calc:      calc,
		thumbSize: thumbSize,
		logger:    logger,
	}
}

// Save сохраняет изображение и результат анализа новой записью
func (s *RecordService) Save(ctx context.Context, image codec.File, result json.RawMessage, model string) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Save(ctx, image, result, model)
	s.observe(ctx, "save", err)
	if err != nil {
		s.logger.WithError(err).WithField("image", image.Name).Error("Ошибка сохранения записи")
		return nil, err
	}
	return record, nil
}

// List возвращает все записи в порядке сохранения
func (s *RecordService) List(ctx context.Context) ([]models.AnalysisRecord, error) {
	return s.repo.List(ctx)
}

// Summaries краткий список записей
func (s *RecordService) Summaries(ctx context.Context) ([]RecordSummary, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]RecordSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarize(record))
	}
	return summaries, nil
}

// Get получает запись по ID
func (s *RecordService) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	record, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("record with id %s: %w", id, repository.ErrRecordNotFound)
	}
	return record, nil
}

// Delete удаляет запись. Отсутствующий ID не ошибка.
func (s *RecordService) Delete(ctx context.Context, id string) ([]models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Delete(ctx, id)
	s.observeCount("delete", records, err)
	return records, err
}

// Clear удаляет все записи
func (s *RecordService) Clear(ctx context.Context) ([]models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Clear(ctx)
	s.observeCount("clear", records, err)
	return records, err
}

// Export формирует документ резервной копии
func (s *RecordService) Export(ctx context.Context) (*models.ExportDocument, error) {
	doc, err := s.repo.Export(ctx)
	metrics.RecordOperationsTotal.WithLabelValues("export", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.logger.WithField("records", len(doc.Records)).Info("Экспорт записей сформирован")
	return doc, nil
}

// Import сливает записи из документа резервной копии
func (s *RecordService) Import(ctx context.Context, contents []byte) ([]models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.Import(ctx, contents)
	s.observeCount("import", records, err)
	if err != nil {
		s.logger.WithError(err).Warn("Импорт записей отклонен")
		return nil, err
	}
	return records, nil
}

// UpdateNotes меняет заметки записи
func (s *RecordService) UpdateNotes(ctx context.Context, id, notes string) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.UpdateNotes(ctx, id, notes)
	metrics.RecordOperationsTotal.WithLabelValues("update_notes", metrics.Result(err)).Inc()
	return record, err
}

// Overlay строит геометрию наложения для записи
func (s *RecordService) Overlay(ctx context.Context, id, hoveredID string) (*geo.Overlay, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := record.Result()
	if err != nil {
		return nil, err
	}
	overlay := s.calc.Render(result, hoveredID)
	return &overlay, nil
}

// RestoreImage восстанавливает исходный файл изображения записи
func (s *RecordService) RestoreImage(ctx context.Context, id string) (codec.File, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return codec.File{}, err
	}
	return codec.DecodeImage(record.ImageData, record.ImageName)
}

// Thumbnail уменьшенная копия изображения записи
func (s *RecordService) Thumbnail(ctx context.Context, id string) (codec.File, error) {
	image, err := s.RestoreImage(ctx, id)
	if err != nil {
		return codec.File{}, err
	}
	return imaging.Thumbnail(image, s.thumbSize)
}

func (s *RecordService) observe(ctx context.Context, operation string, err error) {
	metrics.RecordOperationsTotal.WithLabelValues(operation, metrics.Result(err)).Inc()
	if err != nil {
		return
	}
	if records, listErr := s.repo.List(ctx); listErr == nil {
		metrics.StoredRecords.Set(float64(len(records)))
	}
}

func (s *RecordService) observeCount(operation string, records []models.AnalysisRecord, err error) {
	metrics.RecordOperationsTotal.WithLabelValues(operation, metrics.Result(err)).Inc()
	if err == nil {
		metrics.StoredRecords.Set(float64(len(records)))
	}
}
