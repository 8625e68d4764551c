package handler

import (
	"net/http"

	"spine-analyzer-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Services зависимости HTTP слоя
type Services struct {
	Analyzer *service.AnalyzerService
	Records  *service.RecordService
	Settings *service.SettingsService
	Display  *service.DisplayService
}

// NewRouter настраивает маршруты API
func NewRouter(services Services, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Spine Analyzer API Server",
			"version": service.Version,
			"status":  "running",
		})
	})

	maxUpload := services.Analyzer.Policy().MaxBytes

	api := router.Group("/api/v1")
	NewAnalyzerHandler(services.Analyzer, logger).RegisterRoutes(api)
	NewRecordHandler(services.Records, maxUpload, logger).RegisterRoutes(api)
	NewSettingsHandler(services.Settings, logger).RegisterRoutes(api)
	NewDisplayHandler(services.Display, services.Records, maxUpload, logger).RegisterRoutes(api)

	return router
}

// WithCORS добавляет заголовки CORS для указанных источников
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
