package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// Store is the persistence gateway the orchestrator upserts successful
// records into. Implemented by *database.DB.
type Store interface {
	UpsertShoe(ctx context.Context, shoe *models.Shoe) (*models.Shoe, bool, error)
}

type attemptFunc func(ctx context.Context, article string) (*models.Shoe, error)

// Orchestrator runs the scraping state machine for one article against
// an ordered list of candidate brands. Brands are tried sequentially:
// browser sessions are a limited resource and an early success
// short-circuits the remaining work.
type Orchestrator struct {
	store    Store
	clients  Clients
	logger   *slog.Logger
	attempts map[models.Brand]attemptFunc
}

func NewOrchestrator(store Store, clients Clients, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		clients: clients,
		logger:  logger.With("component", "orchestrator"),
	}
	o.attempts = map[models.Brand]attemptFunc{
		models.BrandAdidas: o.attemptAdidas,
		models.BrandNike:   o.attemptNike,
	}
	return o
}

// Scrape tries each brand in order until one yields a record whose
// article matches the request, upserts that record and returns it along
// with whether it was newly created. Unknown brands are dropped up
// front; an empty filtered list fails with ErrNoValidBrand.
func (o *Orchestrator) Scrape(ctx context.Context, article string, brands []models.Brand) (*models.Shoe, bool, error) {
	valid := o.filterBrands(brands)
	if len(valid) == 0 {
		return nil, false, ErrNoValidBrand
	}

	var failures []BrandFailure
	var mismatched []string

	for _, brand := range valid {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		shoe, err := o.attempts[brand](ctx, article)
		if err != nil {
			o.logger.Warn("brand attempt failed", "brand", brand, "article", article, "error", err)
			failures = append(failures, BrandFailure{Brand: brand, Err: err})
			continue
		}

		// A record for a different article is the site's way of saying
		// "not found": record it and move on to the next brand.
		if !strings.EqualFold(shoe.Article, article) {
			o.logger.Warn("article mismatch, trying next brand",
				"brand", brand, "requested", article, "returned", shoe.Article)
			mismatched = append(mismatched, shoe.Article)
			failures = append(failures, BrandFailure{
				Brand: brand,
				Err:   fmt.Errorf("returned article %q instead of %q", shoe.Article, article),
			})
			continue
		}

		stored, created, err := o.store.UpsertShoe(ctx, shoe)
		if err != nil {
			return nil, false, fmt.Errorf("failed to persist record for %q: %w", article, err)
		}

		o.logger.Info("scrape succeeded",
			"brand", brand, "article", article, "created", created)

		return stored, created, nil
	}

	if len(mismatched) > 0 {
		return nil, false, &ArticleNotFoundError{Requested: article, Found: mismatched}
	}

	return nil, false, &AllFailedError{Article: article, Failures: failures}
}

func (o *Orchestrator) filterBrands(brands []models.Brand) []models.Brand {
	valid := make([]models.Brand, 0, len(brands))
	for _, brand := range brands {
		if !brand.Known() {
			o.logger.Warn("dropping unknown brand", "brand", brand)
			continue
		}
		if _, ok := o.attempts[brand]; !ok {
			continue
		}
		valid = append(valid, brand)
	}
	return valid
}

func (o *Orchestrator) attemptAdidas(ctx context.Context, article string) (*models.Shoe, error) {
	scraper := NewAdidasScraper(article, o.clients.API, o.clients.NewRenderer)

	product, err := scraper.FetchRawProduct(ctx)
	if err != nil {
		return nil, err
	}
	availability, err := scraper.FetchRawAvailability(ctx)
	if err != nil {
		return nil, err
	}

	return NewAdidasParser(product, availability).ProductData(ctx)
}

func (o *Orchestrator) attemptNike(ctx context.Context, article string) (*models.Shoe, error) {
	renderer, err := o.clients.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer renderer.Close()

	raw, err := NewNikeScraper(article, renderer).FetchRawProduct(ctx)
	if err != nil {
		return nil, err
	}

	return NewNikeParser(article, raw).ProductData(ctx)
}
