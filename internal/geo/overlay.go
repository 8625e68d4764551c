package geo

import (
	"spine-analyzer-go/pkg/models"

	"github.com/golang/geo/r2"
)

const (
	hoveredFillOpacity = 0.7
	idleFillOpacity    = 0.4

	// LabelRadius радиус подложки подписи угла
	LabelRadius = 10
)

// Layer слой одного сегмента
type Layer struct {
	SegmentID   string       `json:"segment_id"`
	Label       string       `json:"label"`
	Path        string       `json:"path"`
	Fill        string       `json:"fill"`
	FillOpacity float64      `json:"fill_opacity"`
	Anchor      models.Point `json:"anchor"`
	Hovered     bool         `json:"hovered"`
}

// HoverInfo подсказка для выбранного сегмента
type HoverInfo struct {
	SegmentID   string  `json:"segment_id"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Percent     string  `json:"percent"`
	IsReference bool    `json:"is_reference"`
}

// Overlay готовая к отрисовке геометрия результата анализа
type Overlay struct {
	ViewBox    string              `json:"view_box"`
	Width      float64             `json:"width"`
	Height     float64             `json:"height"`
	Layers     []Layer             `json:"layers"`
	Connectors []AngleConnector    `json:"connectors"`
	Hover      *HoverInfo          `json:"hover,omitempty"`
	Summary    []AngleSummaryEntry `json:"summary"`
}

// Render собирает слои в порядке сегментов, линии углов и подсказку для hoveredID
// и сводку углов. Пустой hoveredID означает, что ничего не выбрано.
func (c *Calculator) Render(result *models.AnalysisResult, hoveredID string) Overlay {
	width, height := result.ImageMetadata.Width, result.ImageMetadata.Height
	if width <= 0 || height <= 0 {
		bounds := c.Bounds(result.Segments)
		width, height = bounds.Hi().X, bounds.Hi().Y
	}

	overlay := Overlay{
		ViewBox:    "0 0 " + formatNumber(width) + " " + formatNumber(height),
		Width:      width,
		Height:     height,
		Layers:     make([]Layer, 0, len(result.Segments)),
		Connectors: []AngleConnector{},
		Summary:    c.AngleSummary(result.Segments),
	}

	for i, segment := range result.Segments {
		hovered := hoveredID != "" && segment.ID == hoveredID
		opacity := idleFillOpacity
		if hovered {
			opacity = hoveredFillOpacity
		}

		overlay.Layers = append(overlay.Layers, Layer{
			SegmentID:   segment.ID,
			Label:       segment.Label,
			Path:        c.OutlinePath(segment.Mask.Points),
			Fill:        c.ColorFor(i, hovered).String(),
			FillOpacity: opacity,
			Anchor:      segment.Mask.Centroid,
			Hovered:     hovered,
		})

		if hovered {
			overlay.Connectors = c.AngleConnectors(segment, result.Segments)
			overlay.Hover = &HoverInfo{
				SegmentID:   segment.ID,
				Label:       segment.Label,
				Confidence:  segment.Confidence,
				Percent:     FormatPercent(segment.Confidence),
				IsReference: segment.IsReference,
			}
		}
	}

	return overlay
}

// Bounds охватывающий прямоугольник всех вершин масок
func (c *Calculator) Bounds(segments []models.Segment) r2.Rect {
	rect := r2.EmptyRect()
	for _, segment := range segments {
		for _, p := range segment.Mask.Points {
			rect = rect.AddPoint(r2.Point{X: p.X(), Y: p.Y()})
		}
	}
	if rect.IsEmpty() {
		return r2.RectFromPoints(r2.Point{})
	}
	return rect
}
