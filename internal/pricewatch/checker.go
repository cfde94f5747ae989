package pricewatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/notify"
)

// Store is the slice of the database the checker needs (for testing)
type Store interface {
	DueWatches(ctx context.Context) ([]*models.PriceWatch, error)
	GetShoe(ctx context.Context, article string) (*models.Shoe, error)
	DeleteWatch(ctx context.Context, id string) (bool, error)
}

// Checker periodically looks for watches whose target price has been
// reached and notifies their owners. A watch is removed after a
// successful notification so nobody is alerted twice for one drop.
type Checker struct {
	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
	interval time.Duration
}

type Config struct {
	Interval time.Duration
}

func NewChecker(store Store, notifier notify.Notifier, logger *slog.Logger, config Config) *Checker {
	if config.Interval == 0 {
		config.Interval = time.Minute
	}

	return &Checker{
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "pricewatch"),
		interval: config.Interval,
	}
}

// Start runs the check loop until the context is cancelled.
func (c *Checker) Start(ctx context.Context) error {
	c.logger.Info("starting price watch checker", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Check immediately on start
	if err := c.CheckOnce(ctx); err != nil {
		c.logger.Error("failed to check watches on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("price watch checker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.CheckOnce(ctx); err != nil {
				c.logger.Error("failed to check watches", "error", err)
				// Keep the loop alive on transient errors
			}
		}
	}
}

// CheckOnce processes every currently due watch.
func (c *Checker) CheckOnce(ctx context.Context) error {
	watches, err := c.store.DueWatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to get due watches: %w", err)
	}

	if len(watches) == 0 {
		return nil
	}

	c.logger.Debug("processing due watches", "count", len(watches))

	for _, watch := range watches {
		if err := c.processWatch(ctx, watch); err != nil {
			c.logger.Error("failed to process watch",
				"watch_id", watch.ID,
				"article", watch.Article,
				"error", err)
			// Continue with other watches
		}
	}

	return nil
}

func (c *Checker) processWatch(ctx context.Context, watch *models.PriceWatch) error {
	shoe, err := c.store.GetShoe(ctx, watch.Article)
	if err != nil {
		return fmt.Errorf("failed to load shoe: %w", err)
	}
	if shoe == nil {
		// The shoe was deleted between the join and now; drop the watch.
		_, err := c.store.DeleteWatch(ctx, watch.ID)
		return err
	}

	if shoe.EffectivePrice().GreaterThan(watch.DesiredPrice) {
		return nil
	}

	if err := c.notifier.PriceAlert(ctx, watch, shoe); err != nil {
		// Leave the watch in place so the next tick retries.
		return fmt.Errorf("failed to notify: %w", err)
	}

	if _, err := c.store.DeleteWatch(ctx, watch.ID); err != nil {
		return fmt.Errorf("failed to retire watch: %w", err)
	}

	c.logger.Info("price alert delivered",
		"watch_id", watch.ID,
		"article", watch.Article,
		"price", shoe.EffectivePrice().String(),
		"desired", watch.DesiredPrice.String())

	return nil
}
