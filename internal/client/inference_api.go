package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/internal/metrics"
	"spine-analyzer-go/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	analysisFailed   = "Analysis failed"
	processingFailed = "Processing failed"
)

// APIError сервис инференса ответил ошибкой
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference api returned status %d: %s", e.StatusCode, e.Message)
}

// BaseURLSource источник адреса сервиса инференса, читается перед каждым запросом
type BaseURLSource interface {
	BaseURL(ctx context.Context) string
}

// StaticBaseURL фиксированный адрес
type StaticBaseURL string

func (s StaticBaseURL) BaseURL(context.Context) string { return string(s) }

// InferenceClient клиент для взаимодействия с сервисом инференса
type InferenceClient struct {
	baseURL    BaseURLSource
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewInferenceClient создает новый клиент сервиса инференса
func NewInferenceClient(baseURL BaseURLSource, timeout time.Duration, logger *logrus.Logger) *InferenceClient {
	return &InferenceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Analyze отправляет изображение на анализ выбранной моделью и возвращает сырой результат
func (c *InferenceClient) Analyze(ctx context.Context, file codec.File, model string) (json.RawMessage, error) {
	c.logger.WithFields(logrus.Fields{
		"file":  file.Name,
		"model": model,
	}).Info("Отправка изображения на анализ")

	respBody, err := c.postFile(ctx, "/analyze", file, map[string]string{"model": model}, analysisFailed)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(respBody)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("failed to parse analysis response: invalid JSON")
	}

	c.logger.Info("Результат анализа получен")
	return json.RawMessage(trimmed), nil
}

type processFileResponse struct {
	Slices []struct {
		Data string `json:"data"`
	} `json:"slices"`
}

// ProcessFile отправляет объемный снимок на нарезку и возвращает срезы в порядке показа
func (c *InferenceClient) ProcessFile(ctx context.Context, file codec.File) ([]codec.File, error) {
	c.logger.WithField("file", file.Name).Info("Отправка файла на нарезку")

	respBody, err := c.postFile(ctx, "/process-file", file, nil, processingFailed)
	if err != nil {
		return nil, err
	}

	var parsed processFileResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse process-file response: %w", err)
	}

	stem, _, _ := strings.Cut(file.Name, ".")
	slices := make([]codec.File, 0, len(parsed.Slices))
	for i, slice := range parsed.Slices {
		name := fmt.Sprintf("%s_slice_%d.png", stem, i)
		decoded, err := codec.DecodeImage(slice.Data, name)
		if err != nil {
			return nil, fmt.Errorf("failed to decode slice %d: %w", i, err)
		}
		decoded.ContentType = "image/png"
		slices = append(slices, decoded)
	}

	c.logger.WithField("slices", len(slices)).Info("Срезы получены")
	return slices, nil
}

// CheckHealth проверяет состояние сервиса инференса
func (c *InferenceClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса инференса")

	start := time.Now()
	url := c.endpoint(ctx, "/health")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, status, err := c.do(req)
	observe("health", start, err)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Message: errorMessage(respBody, "Health check failed")}
	}

	health := models.HealthResponse{Status: "healthy"}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &health); err != nil {
			c.logger.WithError(err).Debug("Ответ health не является JSON")
		}
	}
	return &health, nil
}

func (c *InferenceClient) postFile(ctx context.Context, path string, file codec.File, fields map[string]string, fallback string) ([]byte, error) {
	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileWriter, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := fileWriter.Write(file.Data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.endpoint(ctx, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("Отправка POST запроса на %s", url)
	respBody, status, err := c.do(req)
	if err == nil && (status < 200 || status > 299) {
		err = &APIError{StatusCode: status, Message: errorMessage(respBody, fallback)}
	}
	observe(strings.TrimPrefix(path, "/"), start, err)
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *InferenceClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

func (c *InferenceClient) endpoint(ctx context.Context, path string) string {
	return strings.TrimRight(c.baseURL.BaseURL(ctx), "/") + path
}

// errorMessage достает поле error из тела ответа
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}

func observe(endpoint string, start time.Time, err error) {
	metrics.InferenceRequestDurationSeconds.
		WithLabelValues(endpoint, metrics.Result(err)).
		Observe(time.Since(start).Seconds())
}
