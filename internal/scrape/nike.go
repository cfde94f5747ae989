package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/normalize"
)

const (
	nikeBaseURL           = "https://www.nike.com"
	nikeSearchURLTemplate = nikeBaseURL + "/w?q=%s&vst=%s"

	nikeProductCardSelector = "div.product-card__body"
	nikePriceSelector       = "#price-container"
	nikeSizeGridSelector    = ".pdp-grid-selector-grid"
	nikeImageSelector       = "#hero-image img"
	nikeDescriptionSelector = `p[data-testid="product-description"]`
)

// nikeRawProduct is the parsed product page plus the URL it came from.
type nikeRawProduct struct {
	productURL string
	doc        *goquery.Document
}

// NikeScraper has no API to call. It performs a two-stage navigation
// through a headless browser: search results scoped by article first,
// then the first matching result's product page.
type NikeScraper struct {
	article  string
	renderer PageRenderer
	logger   *slog.Logger
}

// NewNikeScraper wraps a renderer the caller owns; releasing the
// session stays the caller's responsibility.
func NewNikeScraper(article string, renderer PageRenderer) *NikeScraper {
	return &NikeScraper{
		article:  article,
		renderer: renderer,
		logger:   slog.Default().With("component", "nike_scraper", "article", article),
	}
}

func (s *NikeScraper) FetchRawProduct(ctx context.Context) (*nikeRawProduct, error) {
	searchURL := fmt.Sprintf(nikeSearchURLTemplate, s.article, s.article)

	searchHTML, err := s.renderer.RenderPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	productURL, err := s.extractProductURL(searchHTML)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("found product page", "url", productURL)

	productHTML, err := s.renderer.RenderPage(ctx, productURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(productHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	return &nikeRawProduct{productURL: productURL, doc: doc}, nil
}

// extractProductURL picks the first matching result off the search
// page. Absent markup fails loudly naming the selector.
func (s *NikeScraper) extractProductURL(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse search page: %w", err)
	}

	card := doc.Find(nikeProductCardSelector).First()
	if card.Length() == 0 {
		return "", &ExtractionError{Brand: models.BrandNike, Selector: nikeProductCardSelector}
	}

	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok || href == "" {
		return "", &ExtractionError{Brand: models.BrandNike, Selector: nikeProductCardSelector + " a[href]"}
	}

	return absoluteURL(nikeBaseURL, href), nil
}

// NikeParser extracts the canonical record from the rendered product
// page.
type NikeParser struct {
	article string
	raw     *nikeRawProduct
}

func NewNikeParser(article string, raw *nikeRawProduct) *NikeParser {
	return &NikeParser{article: article, raw: raw}
}

func (p *NikeParser) ProductData(_ context.Context) (*models.Shoe, error) {
	doc := p.raw.doc

	priceText, err := p.extractPriceText(doc)
	if err != nil {
		return nil, err
	}
	price, err := normalize.Money(priceText)
	if err != nil {
		return nil, err
	}

	image := doc.Find(nikeImageSelector).First()
	imageURL, ok := image.Attr("src")
	if !ok || imageURL == "" {
		return nil, &MissingFieldError{Brand: models.BrandNike, Field: "image"}
	}

	// The hero image alt text doubles as the product name.
	name, _ := image.Attr("alt")
	if strings.TrimSpace(name) == "" {
		return nil, &MissingFieldError{Brand: models.BrandNike, Field: "name"}
	}

	sizes, err := p.extractSizes(doc)
	if err != nil {
		return nil, err
	}

	return &models.Shoe{
		Article:     p.extractArticle(),
		Name:        strings.TrimSpace(name),
		URL:         p.raw.productURL,
		Image:       imageURL,
		Price:       price,
		Sizes:       sizes,
		Description: strings.TrimSpace(doc.Find(nikeDescriptionSelector).First().Text()),
		ParsedFrom:  models.BrandNike,
	}, nil
}

func (p *NikeParser) extractPriceText(doc *goquery.Document) (string, error) {
	container := doc.Find(nikePriceSelector).First()
	if container.Length() == 0 {
		return "", &ExtractionError{Brand: models.BrandNike, Selector: nikePriceSelector}
	}

	text := strings.TrimSpace(container.Children().First().Text())
	if text == "" {
		text = strings.TrimSpace(container.Text())
	}
	if text == "" {
		return "", &MissingFieldError{Brand: models.BrandNike, Field: "price"}
	}

	return text, nil
}

// extractSizes walks the size grid, skipping cells marked disabled, and
// normalizes the rest. Unparsable tokens are dropped silently.
func (p *NikeParser) extractSizes(doc *goquery.Document) ([]string, error) {
	grid := doc.Find(nikeSizeGridSelector).First()
	if grid.Length() == 0 {
		return nil, &ExtractionError{Brand: models.BrandNike, Selector: nikeSizeGridSelector}
	}

	var sizes []string
	grid.ChildrenFiltered("div").Each(func(_ int, cell *goquery.Selection) {
		if cell.HasClass("disabled") {
			return
		}
		label := cell.Find("label").First()
		if label.Length() == 0 {
			return
		}
		if size, ok := normalize.Size(strings.TrimSpace(label.Text())); ok {
			sizes = append(sizes, size)
		}
	})

	return normalize.SortSizes(sizes), nil
}

// extractArticle derives the style code from the product URL so the
// orchestrator can verify the search landed on the requested article.
func (p *NikeParser) extractArticle() string {
	trimmed := strings.TrimSuffix(p.raw.productURL, "/")
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return p.article
	}
	return trimmed
}
