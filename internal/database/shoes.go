package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

const shoeColumns = `article, name, url, image, price::text, sale_price::text,
	sizes, description, parsed_from, scrape_count, created_at, updated_at`

// UpsertShoe inserts a shoe or refreshes the existing record for its
// article, and appends a price-history snapshot in the same
// transaction so a record can never exist without its observation. The
// returned flag reports whether a new row was created. xmax is zero
// for freshly inserted tuples, which is how the insert and update
// paths are told apart without a second round trip.
func (db *DB) UpsertShoe(ctx context.Context, shoe *models.Shoe) (*models.Shoe, bool, error) {
	query := `
		INSERT INTO shoes (article, name, url, image, price, sale_price, sizes, description, parsed_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (article) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			image = EXCLUDED.image,
			price = EXCLUDED.price,
			sale_price = EXCLUDED.sale_price,
			sizes = EXCLUDED.sizes,
			description = EXCLUDED.description,
			parsed_from = EXCLUDED.parsed_from,
			scrape_count = shoes.scrape_count + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING scrape_count, created_at, updated_at, (xmax = 0) AS created`

	stored := *shoe
	var created bool

	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			shoe.Article, shoe.Name, shoe.URL, shoe.Image,
			shoe.Price.String(), nullableDecimal(shoe.SalePrice), shoe.Sizes,
			shoe.Description, shoe.ParsedFrom,
		).Scan(&stored.ScrapeCount, &stored.CreatedAt, &stored.UpdatedAt, &created)
		if err != nil {
			return fmt.Errorf("failed to upsert shoe: %w", err)
		}

		return recordPriceHistory(ctx, tx, &stored)
	})
	if err != nil {
		return nil, false, err
	}

	return &stored, created, nil
}

// GetShoe retrieves a single shoe by article. Returns nil when the
// article is unknown.
func (db *DB) GetShoe(ctx context.Context, article string) (*models.Shoe, error) {
	query := `SELECT ` + shoeColumns + ` FROM shoes WHERE article = $1`

	shoe, err := scanShoe(db.QueryRow(ctx, query, article))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shoe: %w", err)
	}

	return shoe, nil
}

// ListShoes returns shoes ordered by most recently updated.
func (db *DB) ListShoes(ctx context.Context, limit, offset int) ([]*models.Shoe, error) {
	query := `SELECT ` + shoeColumns + `
		FROM shoes
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query shoes: %w", err)
	}
	defer rows.Close()

	return collectShoes(rows)
}

// TrendingShoes returns the most rescrape-requested shoes first. A
// record nobody asks about again stays at the bottom.
func (db *DB) TrendingShoes(ctx context.Context, limit int) ([]*models.Shoe, error) {
	query := `SELECT ` + shoeColumns + `
		FROM shoes
		ORDER BY scrape_count DESC, updated_at DESC
		LIMIT $1`

	rows, err := db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending shoes: %w", err)
	}
	defer rows.Close()

	return collectShoes(rows)
}

// DeleteShoe removes a shoe and reports whether a row existed.
func (db *DB) DeleteShoe(ctx context.Context, article string) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM shoes WHERE article = $1`, article)
	if err != nil {
		return false, fmt.Errorf("failed to delete shoe: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectShoes(rows pgx.Rows) ([]*models.Shoe, error) {
	var shoes []*models.Shoe
	for rows.Next() {
		shoe, err := scanShoe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shoe: %w", err)
		}
		shoes = append(shoes, shoe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shoes: %w", err)
	}
	return shoes, nil
}

func scanShoe(row pgx.Row) (*models.Shoe, error) {
	var (
		shoe      models.Shoe
		price     string
		salePrice *string
	)

	err := row.Scan(
		&shoe.Article, &shoe.Name, &shoe.URL, &shoe.Image, &price, &salePrice,
		&shoe.Sizes, &shoe.Description, &shoe.ParsedFrom, &shoe.ScrapeCount,
		&shoe.CreatedAt, &shoe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if shoe.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("bad price for %s: %w", shoe.Article, err)
	}
	if salePrice != nil {
		sale, err := decimal.NewFromString(*salePrice)
		if err != nil {
			return nil, fmt.Errorf("bad sale price for %s: %w", shoe.Article, err)
		}
		shoe.SalePrice = &sale
	}

	return &shoe, nil
}

func nullableDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
