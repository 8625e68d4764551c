package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"spine-analyzer-go/internal/client"
	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor сопоставляет ошибку с HTTP статусом
func statusFor(err error) int {
	var validationErr *models.ValidationError
	var encodingErr *models.EncodingError
	var storageErr *models.StorageError
	var apiErr *client.APIError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &encodingErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, repository.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку в ответ и в лог
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		body["field"] = validationErr.Field
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Ошибка обработки запроса")
	} else {
		entry.Warn("Запрос отклонен")
	}

	c.AbortWithStatusJSON(status, body)
}

// readFormFile читает файл из multipart формы целиком. Файл больше maxBytes
// отклоняется до чтения; 0 снимает ограничение.
func readFormFile(c *gin.Context, field string, maxBytes int64) (codec.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return codec.File{}, &models.ValidationError{Field: field, Reason: "is required"}
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return codec.File{}, &models.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("file size too large. Maximum size is %dMB", maxBytes/(1024*1024)),
		}
	}

	file, err := header.Open()
	if err != nil {
		return codec.File{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return codec.File{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = codec.DetectContentType(data)
	}

	return codec.File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// sendFile отдает файл с именем для сохранения
func sendFile(c *gin.Context, file codec.File, disposition string) {
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
