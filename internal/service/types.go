package service

import (
	"encoding/json"

	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/pkg/models"
)

// SliceView срез, готовый к показу и выбору для анализа
type SliceView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	DataURL     string `json:"data_url"`
}

// AnalyzeResponse ответ анализа изображения
type AnalyzeResponse struct {
	Model   string                  `json:"model"`
	Result  json.RawMessage         `json:"analysis_result"`
	Summary []geo.AngleSummaryEntry `json:"angle_summary"`
	Record  *models.AnalysisRecord  `json:"record,omitempty"` // заполняется при сохранении
}

// RecordSummary запись без изображения и результата для списков
type RecordSummary struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	ImageName string `json:"image_name"`
	Model     string `json:"model"`
	Notes     string `json:"notes,omitempty"`
	Segments  int    `json:"segments"`
}

// APIURLSetting действующий адрес сервиса инференса и его происхождение
type APIURLSetting struct {
	URL       string `json:"url"`
	Source    string `json:"source"` // override, persisted или default
	Persisted string `json:"persisted,omitempty"`
}

// UploadPolicy ограничения на загружаемые файлы
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// summarize строит краткое описание записи
func summarize(record models.AnalysisRecord) RecordSummary {
	summary := RecordSummary{
		ID:        record.ID,
		Timestamp: record.Timestamp,
		ImageName: record.ImageName,
		Model:     record.Model,
		Notes:     record.Notes,
	}
	if result, err := record.Result(); err == nil {
		summary.Segments = len(result.Segments)
	}
	return summary
}
