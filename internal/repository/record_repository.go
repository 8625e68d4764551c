package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RecordsKey ключ, под которым хранится вся коллекция записей
const RecordsKey = "analysisRecords"

// ErrRecordNotFound запись с таким идентификатором отсутствует
var ErrRecordNotFound = errors.New("record not found")

// RecordRepository интерфейс для работы с архивом записей анализа
type RecordRepository interface {
	Save(ctx context.Context, image codec.File, result json.RawMessage, model string) (*models.AnalysisRecord, error)
	List(ctx context.Context) ([]models.AnalysisRecord, error)
	Get(ctx context.Context, id string) (*models.AnalysisRecord, bool, error)
	Delete(ctx context.Context, id string) ([]models.AnalysisRecord, error)
	Clear(ctx context.Context) ([]models.AnalysisRecord, error)
	Export(ctx context.Context) (*models.ExportDocument, error)
	Import(ctx context.Context, contents []byte) ([]models.AnalysisRecord, error)
	UpdateNotes(ctx context.Context, id, notes string) (*models.AnalysisRecord, error)
}

// Clock источник текущего времени, подменяется в тестах
type Clock interface {
	Now() time.Time
}

// SystemClock реализация по умолчанию на time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Option настройка репозитория
type Option func(*recordRepository)

// WithClock задает источник времени для timestamp и exportDate
func WithClock(clock Clock) Option {
	return func(r *recordRepository) { r.clock = clock }
}

// WithIDGenerator задает генератор идентификаторов записей
func WithIDGenerator(next func() string) Option {
	return func(r *recordRepository) { r.newID = next }
}

// recordRepository реализация RecordRepository поверх kv.Area.
// Каждая операция читает и перезаписывает коллекцию целиком, блокировок нет.
type recordRepository struct {
	area   kv.Area
	clock  Clock
	newID  func() string
	logger *logrus.Logger
}

// NewRecordRepository создает новый instance RecordRepository
func NewRecordRepository(area kv.Area, logger *logrus.Logger, opts ...Option) RecordRepository {
	r := &recordRepository{
		area:   area,
		clock:  SystemClock{},
		newID:  uuid.NewString,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save кодирует изображение, проверяет результат и добавляет запись в конец коллекции
func (r *recordRepository) Save(ctx context.Context, image codec.File, result json.RawMessage, model string) (*models.AnalysisRecord, error) {
	imageData, err := codec.EncodeImage(image)
	if err != nil {
		return nil, err
	}

	record := models.AnalysisRecord{
		ID:             r.newID(),
		Timestamp:      models.FormatTimestamp(r.clock.Now()),
		ImageName:      image.Name,
		ImageData:      imageData,
		Model:          model,
		AnalysisResult: result,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if record.AnalysisResult, err = models.CanonicalResult(record.AnalysisResult); err != nil {
		return nil, err
	}

	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, record)

	if err := r.persist(ctx, "save", records); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"id":    record.ID,
		"image": record.ImageName,
		"model": record.Model,
	}).Info("Запись анализа сохранена")

	return &record, nil
}

// List возвращает записи в порядке хранения
func (r *recordRepository) List(ctx context.Context) ([]models.AnalysisRecord, error) {
	return r.load(ctx)
}

// Get ищет запись по ID
func (r *recordRepository) Get(ctx context.Context, id string) (*models.AnalysisRecord, bool, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], true, nil
		}
	}
	return nil, false, nil
}

// Delete удаляет запись по ID. Отсутствующий ID не ошибка, запись в хранилище не выполняется.
func (r *recordRepository) Delete(ctx context.Context, id string) ([]models.AnalysisRecord, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	remaining := make([]models.AnalysisRecord, 0, len(records))
	for _, record := range records {
		if record.ID != id {
			remaining = append(remaining, record)
		}
	}
	if len(remaining) == len(records) {
		return records, nil
	}

	if err := r.persist(ctx, "delete", remaining); err != nil {
		return nil, err
	}

	r.logger.WithField("id", id).Info("Запись анализа удалена")
	return remaining, nil
}

// Clear удаляет всю коллекцию
func (r *recordRepository) Clear(ctx context.Context) ([]models.AnalysisRecord, error) {
	if err := r.area.Remove(ctx, RecordsKey); err != nil {
		return nil, &models.StorageError{Op: "clear", Err: err}
	}

	r.logger.Info("Архив записей очищен")
	return []models.AnalysisRecord{}, nil
}

// Export формирует документ резервной копии текущей коллекции
func (r *recordRepository) Export(ctx context.Context) (*models.ExportDocument, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	return &models.ExportDocument{
		Version:    models.ExportVersion,
		ExportDate: models.FormatTimestamp(r.clock.Now()),
		Records:    records,
	}, nil
}

// Import проверяет документ целиком и сливает его записи с текущими по ID.
// При ошибке валидации коллекция не изменяется.
func (r *recordRepository) Import(ctx context.Context, contents []byte) ([]models.AnalysisRecord, error) {
	doc, err := models.ParseExportDocument(contents)
	if err != nil {
		return nil, err
	}

	existing, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	merged := MergeRecords(existing, doc.Records)
	if err := r.persist(ctx, "import", merged); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"imported": len(doc.Records),
		"total":    len(merged),
		"version":  doc.Version,
	}).Info("Импорт записей выполнен")

	return merged, nil
}

// UpdateNotes меняет заметки записи, остальные поля неизменяемы
func (r *recordRepository) UpdateNotes(ctx context.Context, id, notes string) (*models.AnalysisRecord, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ID != id {
			continue
		}
		records[i].Notes = notes
		if err := r.persist(ctx, "update notes", records); err != nil {
			return nil, err
		}
		return &records[i], nil
	}

	return nil, fmt.Errorf("record with id %s: %w", id, ErrRecordNotFound)
}

// MergeRecords сливает коллекции по ID: входящая запись заменяет существующую на ее месте,
// новые ID добавляются в конец в порядке появления
func MergeRecords(existing, incoming []models.AnalysisRecord) []models.AnalysisRecord {
	merged := make([]models.AnalysisRecord, 0, len(existing)+len(incoming))
	positions := make(map[string]int, len(existing)+len(incoming))

	put := func(record models.AnalysisRecord) {
		if i, ok := positions[record.ID]; ok {
			merged[i] = record
			return
		}
		positions[record.ID] = len(merged)
		merged = append(merged, record)
	}

	for _, record := range existing {
		put(record)
	}
	for _, record := range incoming {
		put(record)
	}
	return merged
}

// WriteExport пишет документ экспорта в JSON с отступом в два пробела
func WriteExport(w io.Writer, doc *models.ExportDocument) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func (r *recordRepository) load(ctx context.Context) ([]models.AnalysisRecord, error) {
	raw, ok, err := r.area.Get(ctx, RecordsKey)
	if err != nil {
		return nil, &models.StorageError{Op: "load", Err: err}
	}
	if !ok {
		return []models.AnalysisRecord{}, nil
	}

	var records []models.AnalysisRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		r.logger.WithError(err).Warn("Сохраненные записи повреждены, архив считается пустым")
		return []models.AnalysisRecord{}, nil
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	return records, nil
}

func (r *recordRepository) persist(ctx context.Context, op string, records []models.AnalysisRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return &models.StorageError{Op: op, Err: fmt.Errorf("failed to serialize records: %w", err)}
	}
	if err := r.area.Set(ctx, RecordsKey, payload); err != nil {
		return &models.StorageError{Op: op, Err: err}
	}
	return nil
}
