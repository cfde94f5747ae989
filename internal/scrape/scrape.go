// Package scrape contains the per-brand scraper/parser pairs and the
// orchestrator that tries them in the caller's priority order.
package scrape

import (
	"context"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// JSONGetter is the API fetch strategy. Implemented by *fetch.APIClient.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// PageRenderer is the headless-browser fetch strategy. Implemented by
// *fetch.Renderer. A renderer is a scoped resource: whoever constructs
// one owns it and must Close it on every return path.
type PageRenderer interface {
	RenderPage(ctx context.Context, url string) (string, error)
	Close() error
}

// RendererFactory acquires a fresh browser session. Each scraping
// attempt gets its own session so concurrent requests never share
// fetch-client state.
type RendererFactory func() (PageRenderer, error)

// Parser turns a brand's raw payloads into the canonical record.
type Parser interface {
	ProductData(ctx context.Context) (*models.Shoe, error)
}

// Clients bundles the fetch strategies handed to brand scrapers.
type Clients struct {
	API         JSONGetter
	NewRenderer RendererFactory
}
