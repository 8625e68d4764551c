package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spine-analyzer-go/internal/client"
	"spine-analyzer-go/internal/config"
	"spine-analyzer-go/internal/display"
	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/internal/handler"
	"spine-analyzer-go/internal/healthcheck"
	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/internal/logger"
	"spine-analyzer-go/internal/metrics"
	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.LoadConfig(config.ConfigPathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Запуск Spine Analyzer API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключаем хранилище записей
	log.Infof("Подключение к хранилищу %s...", cfg.Storage.Backend)
	area, err := kv.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatalf("Ошибка подключения к хранилищу: %v", err)
	}
	defer func() {
		if err := kv.CloseIfSupported(area); err != nil {
			log.Errorf("Ошибка закрытия хранилища: %v", err)
		}
	}()

	if err := kv.Ping(ctx, area); err != nil {
		log.Fatalf("Хранилище недоступно: %v", err)
	}
	log.Info("Хранилище успешно подключено и готово к работе")

	metrics.Register()

	// Инициализируем репозитории и сервисы
	calc := geo.NewCalculator()
	recordRepo := repository.NewRecordRepository(area, log)
	recordService := service.NewRecordService(recordRepo, calc, cfg.Thumbnails.MaxSize, log)
	settingsService := service.NewSettingsService(area, cfg.Inference.URL, cfg.Inference.DefaultURL, log)

	inference := client.NewInferenceClient(settingsService, time.Duration(cfg.Inference.Timeout)*time.Second, log)
	analyzerService := service.NewAnalyzerService(
		inference,
		recordService,
		area,
		calc,
		cfg.Models,
		service.UploadPolicy{MaxBytes: cfg.Upload.MaxBytes, AllowedExtensions: cfg.Upload.AllowedExtensions},
		log,
	)

	registry := display.NewRegistry(handler.BlobPath)
	displayService := service.NewDisplayService(registry, log)
	defer displayService.CloseAll()
	if err := metrics.RegisterDisplayAllocations(registry.Len); err != nil {
		log.Warnf("Не удалось зарегистрировать метрику временных URL: %v", err)
	}

	if records, err := recordService.List(ctx); err == nil {
		metrics.StoredRecords.Set(float64(len(records)))
	}

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.Services{
		Analyzer: analyzerService,
		Records:  recordService,
		Settings: settingsService,
		Display:  displayService,
	}, log)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler.WithCORS(router, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health для оркестратора
	var health *healthcheck.Server
	if cfg.Server.GRPCPort > 0 {
		health = healthcheck.NewServer(map[string]healthcheck.Checker{
			"storage": func(ctx context.Context) error { return kv.Ping(ctx, area) },
			"inference": func(ctx context.Context) error {
				_, err := inference.CheckHealth(ctx)
				return err
			},
		}, log)

		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			log.Fatalf("Ошибка запуска gRPC health: %v", err)
		}
		go health.Run(ctx, 30*time.Second)
		go func() {
			log.Infof("gRPC health запущен на порту %d", cfg.Server.GRPCPort)
			if err := health.Serve(lis); err != nil {
				log.Errorf("Ошибка gRPC health: %v", err)
			}
		}()
	}

	go func() {
		log.Infof("Сервер запущен на порту %d", cfg.Server.Port)
		log.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}
	if health != nil {
		health.Stop()
	}
	log.Info("Сервер остановлен")
}
