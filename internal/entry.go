// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/smartscribe/internal/api"
	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/generate"
	"github.com/starford/smartscribe/internal/grammar"
	"github.com/starford/smartscribe/internal/history"
	"github.com/starford/smartscribe/internal/mcpserver"
	"github.com/starford/smartscribe/internal/noteservice"
	"github.com/starford/smartscribe/internal/sse"
	"github.com/starford/smartscribe/internal/storage"
	"github.com/starford/smartscribe/internal/templates"
)

// App holds the components built from a Config.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Catalog *catalog.Catalog
	Service *noteservice.Service

	version string
	history *history.DB
	events  *sse.Broker
}

// NewLogger returns a JSON logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

var newBroker = func() *sse.Broker { return sse.NewBroker(2 * time.Second) }

// Open builds the catalog, selection history, template store, grammar
// validator and completion client described by the config. Callers must
// Close the returned App.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stdout, cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("history_path", cfg.History.Path),
		slog.String("templates_path", cfg.Templates.Path),
		slog.Bool("llm_enabled", cfg.LLM.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	a := &App{Config: cfg, Logger: logger, version: app.version, events: newBroker()}

	catOpts := []catalog.Option{catalog.WithLogger(logger)}
	if cfg.History.Path != "" {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
		a.history = db
		catOpts = append(catOpts, catalog.WithHistory(db))
	}

	cat, err := catalog.Open(cfg.Catalog.Path, catOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	if a.history != nil {
		if err := cat.LoadHistory(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("load selection history: %w", err)
		}
	}
	a.Catalog = cat

	// Ensure template directory exists.
	if err := os.MkdirAll(cfg.Templates.Path, 0o755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create templates dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Templates.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init template storage: %w", err)
	}

	validator, err := grammar.New(cfg.Note)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init note grammar: %w", err)
	}

	svcOpts := []noteservice.Option{
		noteservice.WithTemplates(templates.NewStore(files, logger)),
		noteservice.WithCatalogFile(cfg.Catalog.Path),
		noteservice.WithNotifier(a.events),
		noteservice.WithLogger(logger),
	}
	if cfg.LLM.Enabled() {
		svcOpts = append(svcOpts, noteservice.WithCompleter(generate.NewOpenAI(generate.Config{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			MaxRetries: cfg.LLM.MaxRetries,
			Timeout:    cfg.LLM.Timeout,
			Logger:     logger,
		})))
	}
	a.Service = noteservice.NewService(cat, validator, svcOpts...)

	return a, nil
}

// Close stops the event broker and releases the selection history database.
func (a *App) Close() error {
	a.events.Close()
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// watch hot-reloads the catalog file until ctx is done. Watch failures are
// logged and never stop the process.
func (a *App) watch(ctx context.Context) {
	if !a.Config.Catalog.Watch {
		return
	}
	notify := func(lists int, err error) {
		data := map[string]any{"lists": lists}
		if err != nil {
			data["error"] = err.Error()
		}
		a.events.Notify(noteservice.EventCatalogReloaded, data)
	}
	if err := catalog.Watch(ctx, a.Catalog, a.Config.Catalog.Path, a.Logger, notify); err != nil {
		a.Logger.Warn("catalog watcher failed", slog.String("error", err.Error()))
	}
}

// Handler returns the root HTTP handler: health endpoints plus the API
// mounted under /api.
func (a *App) Handler() http.Handler {
	cfg := a.Config

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
		if len(a.Catalog.IDs()) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"catalog empty"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(a.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, a.events))

	return r
}

// Run starts the HTTP server and the catalog watcher and blocks until a
// shutdown signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	a, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.Logger
	cfg := a.Config

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start catalog watcher.
	g.Go(func() error {
		a.watch(gCtx)
		return nil
	})

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Disconnect SSE clients so Shutdown does not wait on open streams.
		a.events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config != nil && app.logger == nil {
		opts = append(opts, WithLogger(NewLogger(os.Stderr, app.config.App.LogLevel)))
	}

	a, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watch(ctx)

	a.Logger.Info("MCP server starting on stdio")
	return mcpserver.New(a.Service, a.version).ServeStdio()
}
