package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kickscout/sneaker-tracker/internal/api"
	"github.com/kickscout/sneaker-tracker/internal/config"
	"github.com/kickscout/sneaker-tracker/internal/database"
	"github.com/kickscout/sneaker-tracker/internal/fetch"
	"github.com/kickscout/sneaker-tracker/internal/notify"
	"github.com/kickscout/sneaker-tracker/internal/pricewatch"
	"github.com/kickscout/sneaker-tracker/internal/ratelimit"
	"github.com/kickscout/sneaker-tracker/internal/scrape"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	clients := scrape.Clients{
		API:         fetch.NewAPIClient("https://www.adidas.com/us"),
		NewRenderer: rendererFactory(cfg.Browser),
	}
	orchestrator := scrape.NewOrchestrator(db, clients, logger)

	if cfg.Notify.TelegramBotToken != "" {
		checker := pricewatch.NewChecker(db, notify.NewTelegram(cfg.Notify.TelegramBotToken),
			logger, pricewatch.Config{Interval: cfg.Watch.CheckInterval})
		go func() {
			if err := checker.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("price watch checker stopped with error", "error", err)
			}
		}()
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, price watch alerts disabled")
	}

	limiter := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
	trending := api.NewTrendingCache(redisClient, time.Minute, logger)
	handlers := api.NewHandlers(db, orchestrator, trending, logger)

	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := http.StatusOK
		checks := map[string]string{"database": "ok", "redis": "ok"}

		if err := db.Pool().Ping(r.Context()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": state,
			"checks": checks,
		})
	}

	router := api.NewRouter(handlers, limiter, health, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func rendererFactory(cfg config.BrowserConfig) scrape.RendererFactory {
	return func() (scrape.PageRenderer, error) {
		opts := fetch.DefaultRendererOptions()
		opts.RemoteAddr = cfg.RemoteAddr
		opts.Headless = cfg.Headless
		opts.Locale = cfg.Locale
		if cfg.Timeout > 0 {
			opts.Timeout = cfg.Timeout
		}
		if cfg.ViewportWidth > 0 {
			opts.ViewportWidth = cfg.ViewportWidth
		}
		if cfg.ViewportHeight > 0 {
			opts.ViewportHeight = cfg.ViewportHeight
		}
		return fetch.NewRenderer(opts)
	}
}
