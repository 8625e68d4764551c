package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Point точка в пиксельном пространстве изображения
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MaskPoint вершина контура маски, в JSON передается парой [x, y]
type MaskPoint [2]float64

// X координата по горизонтали
func (p MaskPoint) X() float64 { return p[0] }

// Y координата по вертикали
func (p MaskPoint) Y() float64 { return p[1] }

// ImageMetadata размеры изображения, в координатах которого выражена вся геометрия
type ImageMetadata struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Mask замкнутый контур сегмента и точка привязки подписи
type Mask struct {
	Points   []MaskPoint `json:"points"`
	Centroid Point       `json:"centroid"`
}

// SegmentRef ссылка на сегмент внутри одного результата анализа
type SegmentRef struct {
	SegmentID string `json:"segment_id"`
	Label     string `json:"label"`
}

// AdjacentAngle угол между осью сегмента и осью соседа
type AdjacentAngle struct {
	ConnectedSegments []SegmentRef `json:"connected_segments"`
	Angle             float64      `json:"angle"` // знак задает направление поворота
}

// AdjacentAngleEntry элемент adjacent_angles вместе с ключом соседа
type AdjacentAngleEntry struct {
	Key string
	AdjacentAngle
}

// AdjacentAngles упорядоченный набор углов. В JSON это объект, порядок ключей сохраняется.
type AdjacentAngles []AdjacentAngleEntry

// UnmarshalJSON читает объект, сохраняя порядок ключей документа
func (a *AdjacentAngles) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("adjacent_angles: expected object, got %v", tok)
	}

	entries := AdjacentAngles{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("adjacent_angles: unexpected key %v", keyTok)
		}

		var value AdjacentAngle
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("adjacent_angles[%s]: %w", key, err)
		}
		entries = append(entries, AdjacentAngleEntry{Key: key, AdjacentAngle: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = entries
	return nil
}

// MarshalJSON пишет объект в исходном порядке ключей
func (a AdjacentAngles) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.AdjacentAngle)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Segment размеченная анатомическая область
type Segment struct {
	ID             string         `json:"id"`
	Label          string         `json:"label"`
	Confidence     float64        `json:"confidence"`
	IsReference    bool           `json:"is_reference"`
	Mask           Mask           `json:"mask"`
	CenterLine     []Point        `json:"center_line"`
	AdjacentAngles AdjacentAngles `json:"adjacent_angles"`
}

// AnalysisResult ответ сервиса инференса
type AnalysisResult struct {
	ImageMetadata ImageMetadata `json:"image_metadata"`
	Segments      []Segment     `json:"segments"` // порядок сегментов задает порядок отрисовки
}

// ParseAnalysisResult разбирает и проверяет сырой результат анализа
func ParseAnalysisResult(raw json.RawMessage) (*AnalysisResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ValidationError{Field: "analysisResult", Reason: "must be a JSON object"}
	}

	var result AnalysisResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, &ValidationError{Field: "analysisResult", Reason: err.Error()}
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate проверяет инварианты схемы. Ссылки на отсутствующие сегменты ошибкой не считаются.
func (r *AnalysisResult) Validate() error {
	for i, seg := range r.Segments {
		if seg.ID == "" {
			return &ValidationError{Field: fmt.Sprintf("segments[%d].id", i), Reason: "is required"}
		}
		if len(seg.Mask.Points) == 0 {
			return &ValidationError{Field: fmt.Sprintf("segments[%d].mask.points", i), Reason: "must contain at least one point"}
		}
		for _, entry := range seg.AdjacentAngles {
			if len(entry.ConnectedSegments) != 2 {
				return &ValidationError{
					Field:  fmt.Sprintf("segments[%d].adjacent_angles[%s].connected_segments", i, entry.Key),
					Reason: fmt.Sprintf("must reference exactly 2 segments, got %d", len(entry.ConnectedSegments)),
				}
			}
		}
	}
	return nil
}

// SegmentByID ищет сегмент по идентификатору
func (r *AnalysisResult) SegmentByID(id string) (*Segment, bool) {
	for i := range r.Segments {
		if r.Segments[i].ID == id {
			return &r.Segments[i], true
		}
	}
	return nil, false
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status  string `json:"status"`            // healthy/unhealthy
	Storage string `json:"storage,omitempty"` // состояние хранилища записей
	Version string `json:"version,omitempty"`
}

// ModelOption модель инференса, доступная для выбора
type ModelOption struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
