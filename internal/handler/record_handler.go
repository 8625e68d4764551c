package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/internal/service"
	"spine-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RecordHandler обработчик сохраненных записей анализа
type RecordHandler struct {
	recordService  *service.RecordService
	maxUploadBytes int64
	logger         *logrus.Logger
}

// NewRecordHandler создает новый обработчик записей
func NewRecordHandler(recordService *service.RecordService, maxUploadBytes int64, logger *logrus.Logger) *RecordHandler {
	return &RecordHandler{
		recordService:  recordService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты записей
func (h *RecordHandler) RegisterRoutes(api *gin.RouterGroup) {
	records := api.Group("/records")
	{
		records.GET("", h.ListRecords)
		records.POST("", h.SaveRecord)
		records.DELETE("", h.ClearRecords)
		records.GET("/export", h.ExportRecords)
		records.POST("/import", h.ImportRecords)
		records.GET("/:id", h.GetRecord)
		records.DELETE("/:id", h.DeleteRecord)
		records.PATCH("/:id/notes", h.UpdateNotes)
		records.GET("/:id/overlay", h.GetOverlay)
		records.GET("/:id/image", h.GetImage)
		records.GET("/:id/thumbnail", h.GetThumbnail)
	}
}

// ListRecords возвращает записи. ?view=summary отдает список без изображений.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	if c.Query("view") == "summary" {
		summaries, err := h.recordService.Summaries(c.Request.Context())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": summaries, "count": len(summaries)})
		return
	}

	records, err := h.recordService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// SaveRecord сохраняет изображение и уже полученный результат анализа
// @Summary Сохранение записи анализа
// @Accept multipart/form-data
// @Param image formData file true "Исходное изображение"
// @Param model formData string true "Модель"
// @Param analysisResult formData string true "Результат анализа в JSON"
// @Success 201 {object} models.AnalysisRecord
// @Router /records [post]
func (h *RecordHandler) SaveRecord(c *gin.Context) {
	image, err := readFormFile(c, "image", h.maxUploadBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	model := c.PostForm("model")
	if model == "" {
		respondError(c, h.logger, &models.ValidationError{Field: "model", Reason: "is required"})
		return
	}

	result := strings.TrimSpace(c.PostForm("analysisResult"))
	if result == "" || !json.Valid([]byte(result)) {
		respondError(c, h.logger, &models.ValidationError{Field: "analysisResult", Reason: "must be valid JSON"})
		return
	}

	record, err := h.recordService.Save(c.Request.Context(), image, json.RawMessage(result), model)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Infof("Запись %s сохранена", record.ID)
	c.JSON(http.StatusCreated, record)
}

// ClearRecords удаляет все записи
func (h *RecordHandler) ClearRecords(c *gin.Context) {
	records, err := h.recordService.Clear(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// ExportRecords отдает файл резервной копии
func (h *RecordHandler) ExportRecords(c *gin.Context) {
	doc, err := h.recordService.Export(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	exportedAt, err := time.Parse(time.RFC3339Nano, doc.ExportDate)
	if err != nil {
		exportedAt = time.Now()
	}

	var buf bytes.Buffer
	if err := repository.WriteExport(&buf, doc); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", models.ExportFilename(exportedAt)))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// ImportRecords сливает записи из файла резервной копии.
// Принимает multipart поле file или JSON в теле запроса.
func (h *RecordHandler) ImportRecords(c *gin.Context) {
	var contents []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := readFormFile(c, "file", h.maxUploadBytes)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		contents = file.Data
	} else {
		body, err := c.GetRawData()
		if err != nil {
			respondError(c, h.logger, fmt.Errorf("failed to read request body: %w", err))
			return
		}
		contents = body
	}

	records, err := h.recordService.Import(c.Request.Context(), contents)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// GetRecord возвращает запись по ID
func (h *RecordHandler) GetRecord(c *gin.Context) {
	record, err := h.recordService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteRecord удаляет запись, отсутствующая запись не считается ошибкой
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	records, err := h.recordService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes меняет заметки записи
func (h *RecordHandler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, &models.ValidationError{Field: "notes", Reason: "invalid request body"})
		return
	}

	record, err := h.recordService.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetOverlay возвращает геометрию наложения, ?hovered=<segment id> выделяет сегмент
func (h *RecordHandler) GetOverlay(c *gin.Context) {
	overlay, err := h.recordService.Overlay(c.Request.Context(), c.Param("id"), c.Query("hovered"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overlay)
}

// GetImage отдает исходное изображение записи
func (h *RecordHandler) GetImage(c *gin.Context) {
	image, err := h.recordService.RestoreImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, image, "inline")
}

// GetThumbnail отдает уменьшенное изображение записи
func (h *RecordHandler) GetThumbnail(c *gin.Context) {
	thumb, err := h.recordService.Thumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sendFile(c, thumb, "inline")
}
