package handler

import (
	"errors"
	"net/http"
	"strings"

	"spine-analyzer-go/internal/display"
	"spine-analyzer-go/internal/service"
	"spine-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BlobPath префикс временных URL изображений
const BlobPath = "/api/v1/blobs"

// DisplayHandler выдает временные URL для просмотрщиков изображений
type DisplayHandler struct {
	displayService *service.DisplayService
	recordService  *service.RecordService
	maxUploadBytes int64
	logger         *logrus.Logger
}

// NewDisplayHandler создает обработчик просмотрщиков
func NewDisplayHandler(displayService *service.DisplayService, recordService *service.RecordService, maxUploadBytes int64, logger *logrus.Logger) *DisplayHandler {
	return &DisplayHandler{
		displayService: displayService,
		recordService:  recordService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты просмотрщиков
func (h *DisplayHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.PUT("/viewers/:viewer/source", h.ShowSource)
	api.DELETE("/viewers/:viewer", h.CloseViewer)
	api.GET("/blobs/:token", h.GetBlob)
}

type sourceRequest struct {
	URL      string `json:"url"`
	RecordID string `json:"record_id"`
}

// ShowSource меняет изображение просмотрщика. Предыдущий временный URL освобождается.
func (h *DisplayHandler) ShowSource(c *gin.Context) {
	src, err := h.readSource(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	url, err := h.displayService.Show(c.Param("viewer"), src)
	if err != nil {
		if errors.Is(err, display.ErrEmptySource) {
			err = &models.ValidationError{Field: "source", Reason: err.Error()}
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *DisplayHandler) readSource(c *gin.Context) (display.Source, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := readFormFile(c, "file", h.maxUploadBytes)
		if err != nil {
			return display.Source{}, err
		}
		return display.Source{File: file}, nil
	}

	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return display.Source{}, &models.ValidationError{Field: "source", Reason: "invalid request body"}
	}

	switch {
	case req.URL != "":
		return display.Source{URL: req.URL}, nil
	case req.RecordID != "":
		image, err := h.recordService.RestoreImage(c.Request.Context(), req.RecordID)
		if err != nil {
			return display.Source{}, err
		}
		return display.Source{File: image}, nil
	default:
		return display.Source{}, &models.ValidationError{Field: "source", Reason: "url, record_id or file is required"}
	}
}

// CloseViewer закрывает просмотрщик
func (h *DisplayHandler) CloseViewer(c *gin.Context) {
	if !h.displayService.Close(c.Param("viewer")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Просмотрщик не найден"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBlob отдает содержимое временного URL
func (h *DisplayHandler) GetBlob(c *gin.Context) {
	blob, ok := h.displayService.Lookup(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Изображение не найдено или уже освобождено"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}
