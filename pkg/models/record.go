package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ExportVersion версия формата файла экспорта
const ExportVersion = "1.0.0"

// TimestampLayout формат временных меток записей (ISO-8601 с миллисекундами, UTC)
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AnalysisRecord сохраненный сеанс анализа: исходное изображение, модель и результат
type AnalysisRecord struct {
	ID             string          `json:"id"`
	Timestamp      string          `json:"timestamp"`
	ImageName      string          `json:"imageName"`
	ImageData      string          `json:"imageData"` // data URL с MIME-типом и содержимым
	Model          string          `json:"model"`
	AnalysisResult json.RawMessage `json:"analysisResult"` // хранится как есть
	Notes          string          `json:"notes,omitempty"`
}

// Validate проверяет обязательные поля записи
func (r *AnalysisRecord) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"id", r.ID},
		{"timestamp", r.Timestamp},
		{"imageName", r.ImageName},
		{"imageData", r.ImageData},
		{"model", r.Model},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: f.name, Reason: "is required"}
		}
	}

	raw := bytes.TrimSpace(r.AnalysisResult)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &ValidationError{Field: "analysisResult", Reason: "is required"}
	}
	if _, err := ParseAnalysisResult(raw); err != nil {
		return err
	}
	return nil
}

// Result возвращает разобранный результат анализа
func (r *AnalysisRecord) Result() (*AnalysisResult, error) {
	return ParseAnalysisResult(r.AnalysisResult)
}

// CreatedAt разбирает временную метку записи
func (r *AnalysisRecord) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// CanonicalResult приводит результат анализа к виду, в котором он лежит в хранилище:
// без пробелов, с тем же экранированием, что дает json.Marshal
func CanonicalResult(raw json.RawMessage) (json.RawMessage, error) {
	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, &ValidationError{Field: "analysisResult", Reason: err.Error()}
	}
	return canonical, nil
}

// ExportDocument файл резервной копии коллекции записей
type ExportDocument struct {
	Version    string           `json:"version"`
	ExportDate string           `json:"exportDate"`
	Records    []AnalysisRecord `json:"records"`
}

// exportEnvelope нужен, чтобы отличить отсутствующий records от пустого массива
type exportEnvelope struct {
	Version    string          `json:"version"`
	ExportDate string          `json:"exportDate"`
	Records    json.RawMessage `json:"records"`
}

// ParseExportDocument разбирает и целиком проверяет документ импорта.
// Любая ошибка возвращается как ValidationError, частичный результат не возвращается.
func ParseExportDocument(contents []byte) (*ExportDocument, error) {
	var env exportEnvelope
	if err := json.Unmarshal(contents, &env); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid import data format: %v", err)}
	}

	if env.Version == "" {
		return nil, &ValidationError{Field: "version", Reason: "is required"}
	}
	if env.ExportDate == "" {
		return nil, &ValidationError{Field: "exportDate", Reason: "is required"}
	}

	raw := bytes.TrimSpace(env.Records)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ValidationError{Field: "records", Reason: "must be an array"}
	}

	var records []AnalysisRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &ValidationError{Field: "records", Reason: err.Error()}
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, withRecordIndex(err, i)
		}
		canonical, err := CanonicalResult(records[i].AnalysisResult)
		if err != nil {
			return nil, withRecordIndex(err, i)
		}
		records[i].AnalysisResult = canonical
	}

	return &ExportDocument{
		Version:    env.Version,
		ExportDate: env.ExportDate,
		Records:    records,
	}, nil
}

// ExportFilename имя файла экспорта, содержащее дату
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("spine-analysis-export-%s.json", t.UTC().Format("2006-01-02"))
}

// FormatTimestamp форматирует время для полей timestamp и exportDate
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
