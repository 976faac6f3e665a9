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

	"github.com/starford/notewiki/internal/api"
	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/controller"
	"github.com/starford/notewiki/internal/index"
	"github.com/starford/notewiki/internal/mcpserver"
	"github.com/starford/notewiki/internal/noteservice"
	"github.com/starford/notewiki/internal/sse"
	"github.com/starford/notewiki/internal/storage"
	"github.com/starford/notewiki/internal/store"
	"github.com/starford/notewiki/internal/textview"
	"github.com/starford/notewiki/internal/tui"
	"github.com/starford/notewiki/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		mode:   ModeTUI,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required: %w", apperr.ErrArg)
	}

	cfg := app.config

	logger, closeLog, err := app.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("notes_path", cfg.Storage.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := openIndex(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	switch app.mode {
	case ModeTUI:
		return tui.Run(ctx, newController(cfg, db, logger))
	case ModePrint:
		ctl := newController(cfg, db, logger)
		return ctl.Run(ctx, textview.New(app.stdout))
	case ModeServe:
		return runServe(ctx, cfg, db, logger)
	case ModeMCP:
		return runMCP(ctx, cfg, db, logger)
	default:
		return fmt.Errorf("unknown mode %q: %w", app.mode, apperr.ErrArg)
	}
}

// newLogger builds the JSON logger for the mode. The terminal UI owns
// stdout, so it logs to the configured file; mcp carries the protocol on
// stdout, so it logs to stderr.
func (a *application) newLogger() (*slog.Logger, func(), error) {
	level := a.config.App.LogLevel
	if a.verbose {
		level = slog.LevelDebug
	}

	var w io.Writer
	closeFn := func() {}
	switch a.mode {
	case ModeServe:
		w = a.stdout
	case ModeTUI:
		f, err := os.OpenFile(a.config.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w: %v", apperr.ErrIO, err)
		}
		w = f
		closeFn = func() { f.Close() }
	default:
		w = a.stderr
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// openIndex opens the SQLite mirror, or returns nil when it is disabled.
func openIndex(cfg *Config, logger *slog.Logger) (*index.DB, error) {
	if !cfg.Index.Enabled() {
		return nil, nil
	}
	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	logger.Info("index: opened", slog.String("path", cfg.Index.Path))
	return db, nil
}

func newController(cfg *Config, db *index.DB, logger *slog.Logger) *controller.Controller {
	st := store.Open(cfg.Storage.Path, logger)
	opts := []controller.Option{controller.WithLogger(logger)}
	if db != nil {
		opts = append(opts, controller.WithSaveHook(func(ctx context.Context, st *store.Store) error {
			return db.Sync(ctx, st.Notes())
		}))
	}
	ctl := controller.New(st, cfg.Storage.Path, opts...)
	ctl.Seed()
	return ctl
}

func newService(ctx context.Context, cfg *Config, db *index.DB, logger *slog.Logger) (*noteservice.Service, error) {
	file, err := storage.NewFile(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	opts := []noteservice.Option{noteservice.WithLogger(logger)}
	if db != nil {
		opts = append(opts, noteservice.WithIndexer(db))
	}
	svc := noteservice.New(store.Open(file.Path(), logger), file, opts...)
	if db != nil {
		svc.SyncIndex(ctx)
	}
	return svc, nil
}

// saveOnExit persists unsaved service changes with a fresh context, since
// the run context is usually already cancelled.
func saveOnExit(svc *noteservice.Service, logger *slog.Logger) error {
	if !svc.Dirty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Save(ctx); err != nil {
		logger.Error("save on exit failed, changes are lost", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func runServe(ctx context.Context, cfg *Config, db *index.DB, logger *slog.Logger) error {
	svc, err := newService(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.GraphThrottle)
	defer broker.Close()
	svc.OnChange(func(c noteservice.Change) {
		broker.PublishNoteEvent(c.Kind, uint64(c.ID), c.Title)
	})

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload when another process rewrites the notes file.
	g.Go(func() error {
		if err := watcher.Watch(gCtx, cfg.Storage.Path, watcher.DefaultDebounce, logger, svc.ReloadIfChanged); err != nil {
			logger.Warn("watcher: not running", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	err = g.Wait()
	if errors.Is(err, errShutdown) {
		err = nil
	}
	saveErr := saveOnExit(svc, logger)
	if err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return saveErr
}

// errShutdown cancels the errgroup once the server has been asked to stop,
// so the watcher exits with it.
var errShutdown = errors.New("shutdown")

func runMCP(ctx context.Context, cfg *Config, db *index.DB, logger *slog.Logger) error {
	svc, err := newService(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	srv := mcpserver.New(svc, logger)

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()

	select {
	case err = <-done:
	case <-ctx.Done():
	}
	saveErr := saveOnExit(svc, logger)
	if err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return saveErr
}
