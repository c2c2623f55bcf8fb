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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/calder-vision/atrium/internal/access"
	"github.com/calder-vision/atrium/internal/api"
	"github.com/calder-vision/atrium/internal/cache"
	"github.com/calder-vision/atrium/internal/loader"
	"github.com/calder-vision/atrium/internal/mcpserver"
	"github.com/calder-vision/atrium/internal/notify"
	"github.com/calder-vision/atrium/internal/plugins"
	"github.com/calder-vision/atrium/internal/shell"
)

// loopPoster defers binding the loop until after the loader is built.
type loopPoster struct {
	loop *shell.Loop
}

func (p *loopPoster) Post(ev shell.Event) {
	p.loop.Post(ev)
}

// publisher adapts the SSE broker to the shell's Publisher contract, adding
// the computed view mode to state transitions.
type publisher struct {
	broker *notify.Broker
}

func (p *publisher) PublishNotice(sev notify.Severity, e notify.Entry) {
	p.broker.PublishNotice(sev, e)
}

func (p *publisher) PublishCleared(sev notify.Severity) {
	p.broker.PublishCleared(sev)
}

func (p *publisher) PublishState(view shell.StateView) {
	p.broker.Publish(notify.Event{Type: "shell.state", Data: map[string]any{
		"ready":     view.Ready,
		"view_mode": access.Decide(view.Ready, view.Identity),
	}})
}

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
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.Bool("model_plugin_active", cfg.Shell.ModelPluginActive),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Resource payload cache.
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	// Plugin manifest registry.
	registry, err := plugins.NewRegistry(cfg.Plugins.Dir)
	if err != nil {
		return fmt.Errorf("init plugins: %w", err)
	}

	// Notification queues and SSE broker.
	errorsQ := notify.NewQueue()
	messagesQ := notify.NewQueue()
	broker := notify.NewBroker()
	defer broker.Close()

	// Access table and tick loop.
	table := access.NewTable(cfg.Shell.ModelPluginActive)
	poster := &loopPoster{}
	client := loader.New(cfg.Backend.BaseURL, cfg.Backend.Timeout(),
		poster, errorsQ, messagesQ, store, registry, logger)
	loop := shell.NewLoop(client, &publisher{broker: broker},
		errorsQ, messagesQ, cfg.Shell.ModelPluginActive, logger)
	poster.loop = loop

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
	r.Mount("/api", api.NewRouter(loop, table, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Tick loop.
	g.Go(func() error {
		return loop.Run(gCtx)
	})

	// Boot advisory: probe the backend once, then force a tick so any
	// queued message drains.
	g.Go(func() error {
		client.CheckBackend(gCtx)
		loop.Tick()
		return nil
	})

	// Plugin manifest watcher invalidates the plugins resource.
	g.Go(func() error {
		return registry.Watch(gCtx, logger, func() {
			loop.Post(shell.Event{Kind: shell.EventInvalidated, Resource: shell.ResourcePlugins})
		})
	})

	// Optional MCP diagnostic surface on stdio.
	if app.mcpStdio {
		g.Go(func() error {
			return mcpserver.New(loop, table, errorsQ, messagesQ).ServeStdio()
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
