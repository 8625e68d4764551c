package handler

import (
	"net/http"
	"strconv"

	"spine-analyzer-go/internal/service"
	"spine-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalyzerHandler обработчик для анализа снимков
type AnalyzerHandler struct {
	analyzerService *service.AnalyzerService
	logger          *logrus.Logger
}

// NewAnalyzerHandler создает новый обработчик
func NewAnalyzerHandler(analyzerService *service.AnalyzerService, logger *logrus.Logger) *AnalyzerHandler {
	return &AnalyzerHandler{
		analyzerService: analyzerService,
		logger:          logger,
	}
}

// RegisterRoutes регистрирует маршруты анализа
func (h *AnalyzerHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.CheckHealth)
	api.GET("/models", h.ListModels)
	api.POST("/process-file", h.ProcessFile)
	api.POST("/analyze", h.Analyze)
}

// Analyze обрабатывает запрос на анализ снимка
// @Summary Анализ снимка позвоночника
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Изображение или срез"
// @Param model formData string true "Идентификатор модели"
// @Param save formData boolean false "Сохранить запись"
// @Success 200 {object} service.AnalyzeResponse
// @Router /analyze [post]
func (h *AnalyzerHandler) Analyze(c *gin.Context) {
	h.logger.Info("Получен запрос на анализ снимка")

	file, err := readFormFile(c, "file", h.analyzerService.Policy().MaxBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	save := false
	if raw := c.PostForm("save"); raw != "" {
		save, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, &models.ValidationError{Field: "save", Reason: "must be a boolean"})
			return
		}
	}

	response, err := h.analyzerService.Analyze(c.Request.Context(), file, c.PostForm("model"), save)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ProcessFile готовит срезы для выбора
// @Summary Нарезка объемного снимка
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "NIfTI, DICOM или изображение"
// @Router /process-file [post]
func (h *AnalyzerHandler) ProcessFile(c *gin.Context) {
	file, err := readFormFile(c, "file", h.analyzerService.Policy().MaxBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	slices, err := h.analyzerService.PrepareSlices(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views, err := service.SliceViews(slices)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slices": views})
}

// ListModels возвращает доступные модели
func (h *AnalyzerHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.analyzerService.Models()})
}

// CheckHealth проверяет состояние сервиса
func (h *AnalyzerHandler) CheckHealth(c *gin.Context) {
	health := h.analyzerService.CheckHealth(c.Request.Context())
	if health.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	c.JSON(http.StatusOK, health)
}
