package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// CreateWatch registers a price watch and returns it with the generated
// id. The watched article does not have to exist yet; a watch placed
// before the first scrape simply waits.
func (db *DB) CreateWatch(ctx context.Context, watch *models.PriceWatch) (*models.PriceWatch, error) {
	stored := *watch
	stored.ID = uuid.New().String()

	err := db.QueryRow(ctx, `
		INSERT INTO price_watches (id, chat_id, article, desired_price)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		stored.ID, stored.ChatID, stored.Article, stored.DesiredPrice.String(),
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create watch: %w", err)
	}

	return &stored, nil
}

// ListWatches returns every active watch.
func (db *DB) ListWatches(ctx context.Context) ([]*models.PriceWatch, error) {
	rows, err := db.Query(ctx, `
		SELECT id, chat_id, article, desired_price::text, created_at
		FROM price_watches
		ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	var watches []*models.PriceWatch
	for rows.Next() {
		var (
			watch models.PriceWatch
			price string
		)
		if err := rows.Scan(&watch.ID, &watch.ChatID, &watch.Article, &price, &watch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		if watch.DesiredPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad desired price for watch %s: %w", watch.ID, err)
		}
		watches = append(watches, &watch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read watches: %w", err)
	}

	return watches, nil
}

// DueWatches joins watches against the current shoe prices and returns
// those whose effective price has reached the desired price.
func (db *DB) DueWatches(ctx context.Context) ([]*models.PriceWatch, error) {
	rows, err := db.Query(ctx, `
		SELECT w.id, w.chat_id, w.article, w.desired_price::text, w.created_at
		FROM price_watches w
		JOIN shoes s ON s.article = w.article
		WHERE COALESCE(s.sale_price, s.price) <= w.desired_price
		ORDER BY w.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due watches: %w", err)
	}
	defer rows.Close()

	var watches []*models.PriceWatch
	for rows.Next() {
		var (
			watch models.PriceWatch
			price string
		)
		if err := rows.Scan(&watch.ID, &watch.ChatID, &watch.Article, &price, &watch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		if watch.DesiredPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad desired price for watch %s: %w", watch.ID, err)
		}
		watches = append(watches, &watch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due watches: %w", err)
	}

	return watches, nil
}

// DeleteWatch removes a watch once its owner has been notified or asks
// to cancel it.
func (db *DB) DeleteWatch(ctx context.Context, id string) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM price_watches WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete watch: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
