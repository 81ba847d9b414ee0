package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/api"
	"github.com/fix-logviewer/backend/internal/config"
	"github.com/fix-logviewer/backend/internal/observability"
	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/session"
	"github.com/fix-logviewer/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	configFileName  = "fixlogviewer.config"
	shutdownTimeout = 10 * time.Second
)

var opts struct {
	Config string `short:"c" long:"config" value-name:"FILE" description:"XML configuration (default: fixlogviewer.config next to the executable)"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	configPath := opts.Config
	if configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), configFileName)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LoggerOptions{
		App:    "fixlog-server",
		Level:  cfg.Advanced.LogLevel,
		Format: cfg.Advanced.LogFormat,
	})

	if err := run(cfg, configPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(cfg *config.AppConfig, configPath string, logger zerolog.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	registry := parser.NewRegistry(catalog, logger)
	if cfg.Dictionaries.Preload {
		start := time.Now()
		if err := registry.Preload(); err != nil {
			// Broken dictionaries stay cached as failures; other versions still render.
			logger.Error().Err(err).Msg("Some dictionaries failed to preload")
		}
		logger.Info().
			Int("schemas", len(registry.Loaded())).
			Dur("took", time.Since(start)).
			Msg("Dictionaries preloaded")
	}

	renderer := parser.NewRenderer(registry, logger)
	indexer := parser.NewIndexer(registry, logger)

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	sessionMgr := session.NewManager(indexer, session.Options{
		TempDir:     cfg.Storage.TempDirectory,
		MaxSessions: cfg.Processing.MaxSessions,
		Store: parser.StoreOptions{
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			Threads:     cfg.Advanced.DuckDBThreads,
		},
	}, logger)
	defer sessionMgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, sessionMgr, cfg.Processing, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:            logger,
		RequestLogging:    cfg.Advanced.EnableRequestLogging,
		Metrics:           cfg.Server.EnableMetrics,
		RequestTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:         cfg.Server.BodyLimit,
		EnableCompression: cfg.Processing.EnableCompression,
		CompressionLevel:  cfg.Processing.CompressionLevel,
		EnableCORS:        cfg.Server.EnableCORS,
		AllowOrigins:      cfg.Server.AllowOrigins,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Store:      fileStore,
		SessionMgr: sessionMgr,
		Renderer:   renderer,
		Registry:   registry,
		Files: api.FileOptions{
			AllowedTypes: cfg.Security.AllowedFileTypes,
			AllowDelete:  cfg.Security.AllowFileDeletion,
		},
		Version:          Version,
		Logger:           logger,
		WSMaxMessageSize: int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
	})
	api.RegisterRoutes(e, handlers, cfg.Server.EnableMetrics)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("config", configPath).
		Str("listen", "http://"+cfg.GetServerAddr()).
		Str("data_dir", cfg.GetDataDir()).
		Str("dictionaries", catalog.Directory).
		Msg("FIX log viewer starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cleanupSessions drops idle sessions until ctx is cancelled.
func cleanupSessions(ctx context.Context, mgr *session.Manager, cfg config.ProcessingConfig, logger zerolog.Logger) {
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAge := time.Duration(cfg.SessionTimeoutMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mgr.CleanupOldSessions(maxAge); n > 0 {
				logger.Info().Int("removed", n).Int("active", mgr.Len()).Msg("Cleaned up idle sessions")
			}
		}
	}
}
