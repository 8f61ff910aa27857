package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/skythread/internal/bluesky"
	"github.com/starford/skythread/internal/media"
	"github.com/starford/skythread/internal/metrics"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/postservice"
	"github.com/starford/skythread/internal/settings"
	"github.com/starford/skythread/internal/sse"
	"github.com/starford/skythread/internal/storage"
)

const settingsThrottle = 2 * time.Second

// App holds the wired components shared by the server, MCP and CLI
// commands.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Settings *settings.Store
	Metrics  *metrics.Metrics
	Broker   *sse.Broker
	Service  *postservice.Service

	db *outline.DB
}

// Open applies opts, sets up logging and wires every component. The
// caller must Close the returned App.
func Open(opts ...Option) (*App, error) {
	a := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.Outline.SQLitePath),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("bluesky_service", cfg.Bluesky.Service),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Settings live in their own private directory.
	settingsDir := filepath.Dir(cfg.Settings.Path)
	if err := os.MkdirAll(settingsDir, 0o700); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	fs, err := storage.NewFS(settingsDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	st, err := settings.Open(fs, filepath.Base(cfg.Settings.Path))
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}

	db, err := outline.Open(cfg.Outline.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init outline: %w", err)
	}

	m := metrics.New()
	broker := sse.NewBroker(settingsThrottle)
	client := bluesky.NewXRPC(cfg.Bluesky.Service, cfg.Bluesky.Timeout)
	uploader := media.NewUploader(media.Config{
		MaxImages: cfg.Media.MaxImages,
		MaxBytes:  cfg.Media.MaxBytes,
		Timeout:   cfg.Media.Timeout,
	}, m, logger)

	svc := postservice.New(postservice.Deps{
		Outline:       db,
		Settings:      st,
		Client:        client,
		Uploader:      uploader,
		Notifier:      broker,
		Metrics:       m,
		Logger:        logger,
		MaxPostLength: cfg.Bluesky.MaxPostLength,
		Hotkey:        cfg.Command.Hotkey,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Settings: st,
		Metrics:  m,
		Broker:   broker,
		Service:  svc,
		db:       db,
	}, nil
}

// Close releases the broker and the database.
func (a *App) Close() error {
	a.Broker.Close()
	return a.db.Close()
}
