package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// recordPriceHistory appends a price snapshot within the upsert's
// transaction. Every scrape leaves a row, so the history shows flat
// stretches as well as drops.
func recordPriceHistory(ctx context.Context, tx pgx.Tx, shoe *models.Shoe) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO shoe_price_history (article, price, sale_price)
		VALUES ($1, $2, $3)`,
		shoe.Article, shoe.Price.String(), nullableDecimal(shoe.SalePrice),
	)
	if err != nil {
		return fmt.Errorf("failed to record price history: %w", err)
	}

	return nil
}

// GetPriceHistory returns the recorded snapshots for an article, newest
// first.
func (db *DB) GetPriceHistory(ctx context.Context, article string, limit int) ([]*models.PricePoint, error) {
	rows, err := db.Query(ctx, `
		SELECT article, price::text, sale_price::text, recorded_at
		FROM shoe_price_history
		WHERE article = $1
		ORDER BY recorded_at DESC
		LIMIT $2`,
		article, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []*models.PricePoint
	for rows.Next() {
		var (
			point     models.PricePoint
			price     string
			salePrice *string
		)
		if err := rows.Scan(&point.Article, &price, &salePrice, &point.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}

		if point.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price for %s: %w", point.Article, err)
		}
		if salePrice != nil {
			sale, err := decimal.NewFromString(*salePrice)
			if err != nil {
				return nil, fmt.Errorf("bad sale price for %s: %w", point.Article, err)
			}
			point.SalePrice = &sale
		}

		points = append(points, &point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price history: %w", err)
	}

	return points, nil
}
