package geo

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"spine-analyzer-go/pkg/models"

	"github.com/golang/geo/r2"
	"github.com/shopspring/decimal"
)

const (
	// goldenAngle шаг оттенка между соседними сегментами, в градусах
	goldenAngle = 137.508

	hoveredAlpha = 0.8
	idleAlpha    = 0.5
)

// Calculator для геометрии наложения поверх снимка. Состояния не хранит.
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Color цвет заливки сегмента в модели HSLA
type Color struct {
	Hue   float64 `json:"hue"`
	Alpha float64 `json:"alpha"`
}

// String форматирует цвет для CSS/SVG
func (c Color) String() string {
	return "hsla(" + formatNumber(c.Hue) + ", 100%, 50%, " + formatNumber(c.Alpha) + ")"
}

// ColorFor вычисляет цвет сегмента по его индексу в результате
func (c *Calculator) ColorFor(index int, hovered bool) Color {
	alpha := idleAlpha
	if hovered {
		alpha = hoveredAlpha
	}
	return Color{
		Hue:   math.Mod(float64(index)*goldenAngle, 360),
		Alpha: alpha,
	}
}

// OutlinePath строит SVG-путь замкнутого контура: M x0 y0 L x1 y1 ... Z
func (c *Calculator) OutlinePath(points []models.MaskPoint) string {
	if len(points) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("M ")
	for i, p := range points {
		if i > 0 {
			sb.WriteString(" L ")
		}
		sb.WriteString(formatNumber(p.X()))
		sb.WriteByte(' ')
		sb.WriteString(formatNumber(p.Y()))
	}
	sb.WriteString(" Z")
	return sb.String()
}

// Midpoint середина отрезка
func (c *Calculator) Midpoint(a, b models.Point) models.Point {
	mid := toVector(a).Add(toVector(b)).Mul(0.5)
	return models.Point{X: mid.X, Y: mid.Y}
}

// AngleConnector линия угла между двумя сегментами
type AngleConnector struct {
	Key        string         `json:"key"`
	From       []models.Point `json:"from"` // осевая линия первого сегмента
	To         []models.Point `json:"to"`   // осевая линия второго сегмента
	LabelAt    models.Point   `json:"label_at"`
	Text       string         `json:"text"`
	SegmentIDs [2]string      `json:"segment_ids"`
}

// AngleConnectors строит линии углов выбранного сегмента в порядке adjacent_angles.
// Записи со ссылками на отсутствующие сегменты пропускаются.
func (c *Calculator) AngleConnectors(hovered models.Segment, all []models.Segment) []AngleConnector {
	connectors := make([]AngleConnector, 0, len(hovered.AdjacentAngles))

	for _, entry := range hovered.AdjacentAngles {
		if len(entry.ConnectedSegments) != 2 {
			continue
		}
		first, ok := findSegment(all, entry.ConnectedSegments[0].SegmentID)
		if !ok {
			continue
		}
		second, ok := findSegment(all, entry.ConnectedSegments[1].SegmentID)
		if !ok {
			continue
		}
		if len(first.CenterLine) < 2 || len(second.CenterLine) < 2 {
			continue
		}

		line1 := first.CenterLine[:2]
		line2 := second.CenterLine[:2]
		connectors = append(connectors, AngleConnector{
			Key:        entry.Key,
			From:       []models.Point{line1[0], line1[1]},
			To:         []models.Point{line2[0], line2[1]},
			LabelAt:    c.Midpoint(c.Midpoint(line1[0], line1[1]), c.Midpoint(line2[0], line2[1])),
			Text:       FormatDegrees(entry.Angle),
			SegmentIDs: [2]string{first.ID, second.ID},
		})
	}

	return connectors
}

// AngleSummaryEntry измеренный угол для пары позвонков
type AngleSummaryEntry struct {
	Pair  string  `json:"pair"`
	Angle float64 `json:"angle"` // абсолютное значение
	Text  string  `json:"text"`
}

// AngleSummary сводка углов по опорным сегментам. Пара определяется отсортированными
// метками, при повторе пары остается первое встреченное значение.
func (c *Calculator) AngleSummary(segments []models.Segment) []AngleSummaryEntry {
	summary := []AngleSummaryEntry{}
	seen := make(map[string]struct{})

	for _, segment := range segments {
		if !segment.IsReference {
			continue
		}
		for _, entry := range segment.AdjacentAngles {
			pair := pairKey(entry.ConnectedSegments)
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			summary = append(summary, AngleSummaryEntry{
				Pair:  pair,
				Angle: math.Abs(entry.Angle),
				Text:  FormatDegrees(entry.Angle),
			})
		}
	}

	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].Pair < summary[j].Pair
	})
	return summary
}

// ConnectedSegments сегменты, на которые ссылаются углы данного, в порядке результата
func (c *Calculator) ConnectedSegments(segment models.Segment, all []models.Segment) []models.Segment {
	ids := make(map[string]struct{})
	for _, entry := range segment.AdjacentAngles {
		for _, ref := range entry.ConnectedSegments {
			ids[ref.SegmentID] = struct{}{}
		}
	}

	connected := []models.Segment{}
	for _, s := range all {
		if _, ok := ids[s.ID]; ok {
			connected = append(connected, s)
		}
	}
	return connected
}

// FormatDegrees модуль угла с одним знаком после запятой и символом градуса.
// Округляется точное двоичное значение: 1.45 хранится как 1.4499... и дает 1.4.
func FormatDegrees(angle float64) string {
	return fixed1(math.Abs(angle)) + "°"
}

// FormatPercent доля в процентах с одним знаком после запятой
func FormatPercent(fraction float64) string {
	return fixed1(fraction*100) + "%"
}

func fixed1(value float64) string {
	return decimal.NewFromFloatWithExponent(value, -1).StringFixed(1)
}

func pairKey(refs []models.SegmentRef) string {
	labels := make([]string, 0, len(refs))
	for _, ref := range refs {
		labels = append(labels, ref.Label)
	}
	sort.Strings(labels)
	return strings.Join(labels, "-")
}

func findSegment(all []models.Segment, id string) (models.Segment, bool) {
	for _, s := range all {
		if s.ID == id {
			return s, true
		}
	}
	return models.Segment{}, false
}

func toVector(p models.Point) r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// formatNumber кратчайшая десятичная запись числа
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
