package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kickscout/sneaker-tracker/internal/config"
	"github.com/kickscout/sneaker-tracker/internal/database"
	"github.com/kickscout/sneaker-tracker/internal/fetch"
	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/queue"
	"github.com/kickscout/sneaker-tracker/internal/ratelimit"
	"github.com/kickscout/sneaker-tracker/internal/scrape"
)

func main() {
	var (
		articles  = flag.String("articles", "", "Comma-separated list of article numbers to scrape")
		inputFile = flag.String("file", "", "File containing article numbers (one per line)")
		brands    = flag.String("brands", "", "Comma-separated brand order to try (default from config)")
		output    = flag.String("output", "stdout", "Output format: stdout, json")
		dryRun    = flag.Bool("dry-run", false, "Scrape without persisting results")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	brandOrder := resolveBrands(*brands, cfg.Scraper.Brands)

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	if err := loadTasks(taskQueue, *articles, *inputFile, brandOrder); err != nil {
		logger.Error("failed to load tasks", "error", err)
		os.Exit(1)
	}

	if taskQueue.Size() == 0 {
		fmt.Println("No tasks to process. Use -articles or -file to specify articles to scrape.")
		flag.Usage()
		os.Exit(1)
	}

	var store scrape.Store = discardStore{}
	if !*dryRun {
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
		store = db
	}

	clients := scrape.Clients{
		API: fetch.NewAPIClient("https://www.adidas.com/us"),
		NewRenderer: func() (scrape.PageRenderer, error) {
			opts := fetch.DefaultRendererOptions()
			opts.RemoteAddr = cfg.Browser.RemoteAddr
			opts.Headless = cfg.Browser.Headless
			opts.Locale = cfg.Browser.Locale
			return fetch.NewRenderer(opts)
		},
	}
	orchestrator := scrape.NewOrchestrator(store, clients, logger)

	rateLimiter := ratelimit.NewAdaptiveRateLimiter(
		cfg.Scraper.RateLimitMin,
		cfg.Scraper.RateLimitMax,
	)

	logger.Info("starting batch scrape", "tasks", taskQueue.Size(), "brands", brandOrder)

	for {
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, exiting")
			return
		default:
		}

		if taskQueue.Size() == 0 {
			break
		}

		task, err := taskQueue.Pop(ctx)
		if err != nil {
			if err == queue.ErrQueueEmpty || err == queue.ErrQueueClosed {
				break
			}
			logger.Error("failed to get task from queue", "error", err)
			continue
		}

		if err := rateLimiter.Wait(ctx); err != nil {
			logger.Error("rate limiter error", "error", err)
			continue
		}

		logger.Info("processing task", "article", task.Article, "retry", task.Retries)

		shoe, created, err := orchestrator.Scrape(ctx, task.Article, task.Brands)
		if err != nil {
			logger.Error("failed to scrape article", "article", task.Article, "error", err)
			rateLimiter.RecordError()

			if retriable(err) && task.Retries < cfg.Scraper.MaxRetries {
				task.Retries++
				taskQueue.Push(task)
				logger.Info("retrying task", "article", task.Article, "retry", task.Retries)
			}
			continue
		}

		rateLimiter.RecordSuccess()

		if err := outputResult(shoe, created, *output); err != nil {
			logger.Error("failed to output result", "error", err)
		}
	}

	logger.Info("batch scrape completed")
}

// retriable reports whether another attempt could plausibly succeed.
// Definitive outcomes, a mismatched or unparseable article, are not
// worth a retry.
func retriable(err error) bool {
	var notFound *scrape.ArticleNotFoundError
	var missing *scrape.MissingFieldError
	if errors.Is(err, scrape.ErrNoValidBrand) || errors.As(err, &notFound) || errors.As(err, &missing) {
		return false
	}
	return true
}

func resolveBrands(flagValue string, configured []string) []models.Brand {
	names := configured
	if flagValue != "" {
		names = strings.Split(flagValue, ",")
	}

	brands := make([]models.Brand, 0, len(names))
	for _, name := range names {
		brands = append(brands, models.Brand(strings.TrimSpace(name)))
	}
	return brands
}

func loadTasks(q queue.Queue, articles, inputFile string, brands []models.Brand) error {
	var items []string

	if articles != "" {
		items = append(items, strings.Split(articles, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				items = append(items, line)
			}
		}
	}

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		q.Push(&queue.Task{
			ID:        uuid.New().String(),
			Article:   item,
			Brands:    brands,
			Priority:  1,
			CreatedAt: time.Now(),
		})
	}

	return nil
}

func outputResult(shoe *models.Shoe, created bool, format string) error {
	switch format {
	case "json":
		encoded, err := json.Marshal(shoe)
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
	default:
		fmt.Printf("Article: %s\n", shoe.Article)
		fmt.Printf("Name: %s\n", shoe.Name)
		fmt.Printf("Price: %s\n", shoe.EffectivePrice().StringFixed(2))
		fmt.Printf("Sizes: %s\n", strings.Join(shoe.Sizes, ", "))
		fmt.Printf("Source: %s\n", shoe.ParsedFrom)
		fmt.Printf("Created: %t\n", created)
		fmt.Println("---")
	}
	return nil
}

// discardStore satisfies the persistence interface for dry runs.
type discardStore struct{}

func (discardStore) UpsertShoe(_ context.Context, shoe *models.Shoe) (*models.Shoe, bool, error) {
	return shoe, false, nil
}
