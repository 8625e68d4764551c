package handler

import (
	"net/http"

	"spine-analyzer-go/internal/service"
	"spine-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SettingsHandler обработчик настроек клиента
type SettingsHandler struct {
	settingsService *service.SettingsService
	logger          *logrus.Logger
}

// NewSettingsHandler создает обработчик настроек
func NewSettingsHandler(settingsService *service.SettingsService, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// RegisterRoutes регистрирует маршруты настроек
func (h *SettingsHandler) RegisterRoutes(api *gin.RouterGroup) {
	settings := api.Group("/settings")
	{
		settings.GET("/api-url", h.GetAPIURL)
		settings.PUT("/api-url", h.SetAPIURL)
		settings.DELETE("/api-url", h.ResetAPIURL)
	}
}

// GetAPIURL возвращает действующий адрес сервиса инференса
func (h *SettingsHandler) GetAPIURL(c *gin.Context) {
	setting, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

type apiURLRequest struct {
	URL string `json:"url"`
}

// SetAPIURL сохраняет адрес сервиса инференса
func (h *SettingsHandler) SetAPIURL(c *gin.Context) {
	var req apiURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, &models.ValidationError{Field: "url", Reason: "invalid request body"})
		return
	}

	setting, err := h.settingsService.Set(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// ResetAPIURL возвращает адрес по умолчанию
func (h *SettingsHandler) ResetAPIURL(c *gin.Context) {
	setting, err := h.settingsService.Reset(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
