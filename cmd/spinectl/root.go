package main

import (
	"context"
	"time"

	"spine-analyzer-go/internal/client"
	"spine-analyzer-go/internal/config"
	"spine-analyzer-go/internal/geo"
	"spine-analyzer-go/internal/kv"
	"spine-analyzer-go/internal/logger"
	"spine-analyzer-go/internal/repository"
	"spine-analyzer-go/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app сервисы, общие для всех команд
type app struct {
	configPath string
	verbose    bool

	log      *logrus.Logger
	area     kv.Area
	records  *service.RecordService
	settings *service.SettingsService
	analyzer *service.AnalyzerService
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "spinectl",
		Short:         "Manage saved spine analyses",
		Long:          `Works with the same record store as the API server: list, export and import analyses, run inference and inspect overlays.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config (defaults to $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newSaveCmd(a),
		newDeleteCmd(a),
		newClearCmd(a),
		newNotesCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newAnalyzeCmd(a),
		newHealthCmd(a),
		newAPIURLCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	if a.verbose {
		a.log = logger.New(cfg.Logging.Level, "text")
	} else {
		a.log = logger.Discard()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	area, err := kv.Open(ctx, cfg.Storage, a.log)
	if err != nil {
		return err
	}
	a.area = area

	calc := geo.NewCalculator()
	a.records = service.NewRecordService(repository.NewRecordRepository(area, a.log), calc, cfg.Thumbnails.MaxSize, a.log)
	a.settings = service.NewSettingsService(area, cfg.Inference.URL, cfg.Inference.DefaultURL, a.log)

	inference := client.NewInferenceClient(a.settings, time.Duration(cfg.Inference.Timeout)*time.Second, a.log)
	a.analyzer = service.NewAnalyzerService(
		inference,
		a.records,
		area,
		calc,
		cfg.Models,
		service.UploadPolicy{MaxBytes: cfg.Upload.MaxBytes, AllowedExtensions: cfg.Upload.AllowedExtensions},
		a.log,
	)
	return nil
}

func (a *app) close() error {
	if a.area == nil {
		return nil
	}
	err := kv.CloseIfSupported(a.area)
	a.area = nil
	return err
}
