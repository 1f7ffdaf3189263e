// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/eihwaz/internal/api"
	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/mcpserver"
	"github.com/starford/eihwaz/internal/noteservice"
	"github.com/starford/eihwaz/internal/sse"
	"github.com/starford/eihwaz/internal/store"
	pkgconfig "github.com/starford/eihwaz/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize collection store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Conversion settings. An invalid conversion section disables the
	// feature with a warning rather than blocking startup.
	settings := converter.NewSettings(nil)
	if err := settings.Replace(&cfg.Conversion); err != nil {
		logger.Warn("conversion disabled: invalid configuration",
			slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	engine := converter.NewEngine(db, settings, logger,
		converter.WithNotifyFunc(func(res converter.Result) {
			if res.Status == converter.StatusConverted {
				broker.PublishNoteEvent("converted", res.NoteID, fmt.Sprintf("%d markers", len(res.Indices)))
			}
		}))

	for _, w := range engine.CheckConfig() {
		logger.Warn("conversion config warning", slog.String("detail", w))
	}

	// Build API service and router.
	svc := noteservice.NewService(db, engine)
	handler := api.NewHandler(svc, settings, engine, broker)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file so conversion settings can be edited without a
	// restart. Other sections still require one.
	if app.configPath != "" {
		g.Go(func() error {
			watchConfig(gCtx, app.configPath, settings, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// watchConfig reloads the conversion section when the config file changes.
// The parent directory is watched because editors typically replace the file
// rather than writing it in place.
func watchConfig(ctx context.Context, path string, settings *converter.Settings, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("config watcher unavailable",
			slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			fresh := NewDefaultConfig()
			if err := pkgconfig.Load(path, fresh); err != nil {
				logger.Warn("config reload failed", slog.String("error", err.Error()))
				continue
			}
			if err := settings.Replace(&fresh.Conversion); err != nil {
				logger.Warn("conversion config rejected on reload",
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("conversion config reloaded",
				slog.Int("source_layouts", len(fresh.Conversion.SourceLayouts)),
				slog.String("target_layout", fresh.Conversion.TargetLayout))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

// RunMCP starts the MCP server on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	settings := converter.NewSettings(nil)
	if err := settings.Replace(&cfg.Conversion); err != nil {
		logger.Warn("conversion disabled: invalid configuration",
			slog.String("error", err.Error()))
	}

	engine := converter.NewEngine(db, settings, logger)
	svc := noteservice.NewService(db, engine)

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(svc, settings).ServeStdio()
}
