// ReplyCraft - AI reply suggestion server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/replycraft/internal/api"
	"github.com/ashureev/replycraft/internal/chat"
	"github.com/ashureev/replycraft/internal/config"
	"github.com/ashureev/replycraft/internal/httpkit"
	"github.com/ashureev/replycraft/internal/identity"
	"github.com/ashureev/replycraft/internal/live"
	"github.com/ashureev/replycraft/internal/llm"
	"github.com/ashureev/replycraft/internal/middleware"
	"github.com/ashureev/replycraft/internal/news"
	"github.com/ashureev/replycraft/internal/ratelimit"
	"github.com/ashureev/replycraft/internal/reply"
	"github.com/ashureev/replycraft/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.AI.Model)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			os.Exit(1)
		}
	}

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if !cfg.AI.Configured() {
		slog.Warn("ANTHROPIC_API_KEY not set, reply generation will fail with a config error")
	}

	// Initialize services.
	provider := llm.NewAnthropicClient(cfg.AI, nil, logger)
	generator := reply.NewGenerator(provider, logger,
		reply.WithTimeout(cfg.AI.Timeout),
		reply.WithMaxTokens(cfg.AI.MaxTokens),
	)

	newsClient := httpkit.NewClient(httpkit.WithTimeout(cfg.News.Timeout))
	augmenter := news.NewAugmenter(
		news.NewNewsData(cfg.News.NewsDataAPIKey, cfg.News.NewsDataBaseURL, newsClient, logger),
		news.NewFeeds(cfg.News.Feeds, newsClient, logger),
		logger,
		news.WithTimeout(cfg.News.Timeout),
	)

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	hub := live.NewHub(logger)

	chats := chat.NewService(repo, generator, augmenter, limiter, logger,
		chat.WithNotifier(hub),
		chat.WithContextWindow(cfg.AI.ContextWindowSize),
	)
	sessions := identity.NewSessions(repo, cfg.SessionTTL, cfg.IsDevelopment(), logger)
	accounts := identity.NewAccounts(repo)

	// Initialize handlers.
	apiHandler := api.NewHandler(accounts, sessions, chats, hub, logger)
	healthHandler := api.NewHealthHandler(repo, cfg.AI.Configured())
	wsHandler := live.NewWebSocketHandler(hub, chats, cfg.FrontendURL, cfg.IsDevelopment(), logger)

	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(sessions.Middleware)

	// Public routes.
	healthHandler.RegisterHealth(r)

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.With(identity.RequireUser).Get("/ws/chats/{chatId}", wsHandler.ServeHTTP)

	// Create server.
	// WebSocket subscriptions are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session sweeper; it also drops expired rate-limit windows.
	sessions.StartSweeper(ctx, identity.DefaultSweepInterval, func() {
		if n := limiter.Sweep(); n > 0 {
			slog.Debug("Rate limit windows swept", "count", n)
		}
	})

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
