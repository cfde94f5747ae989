package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kickscout/sneaker-tracker/internal/fetch"
	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/normalize"
)

const (
	adidasAPIURLTemplate  = "https://www.adidas.com/api/products/%s"
	adidasPageURLTemplate = "https://www.adidas.com/%s.html"

	statusInStock = "IN_STOCK"
)

// adidasProductPayload is the shape of the Adidas product API response.
// Only the fields the parser consumes are modeled.
type adidasProductPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MetaData struct {
		Canonical string `json:"canonical"`
	} `json:"meta_data"`
	PricingInformation struct {
		StandardPrice json.Number `json:"standard_price"`
		SalePrice     json.Number `json:"sale_price"`
	} `json:"pricing_information"`
	ProductDescription struct {
		Text string `json:"text"`
	} `json:"product_description"`
	ViewList []struct {
		ImageURL string `json:"image_url"`
	} `json:"view_list"`
}

type adidasAvailabilityPayload struct {
	VariationList []struct {
		Size               string `json:"size"`
		AvailabilityStatus string `json:"availability_status"`
	} `json:"variation_list"`
}

// adidasRawProduct carries either the structured API payload or, after
// a render fallback, only the page text. The fallback has no structured
// schema, so a parse over it surfaces the missing fields instead of
// fabricating a record.
type adidasRawProduct struct {
	payload  *adidasProductPayload
	pageText string
}

// AdidasScraper fetches raw Adidas payloads. The JSON API is the fast
// path; when it fails with a reachability or upstream error, the
// human-facing product page is rendered as a best-effort fallback.
type AdidasScraper struct {
	article     string
	api         JSONGetter
	newRenderer RendererFactory
	logger      *slog.Logger
}

func NewAdidasScraper(article string, api JSONGetter, newRenderer RendererFactory) *AdidasScraper {
	return &AdidasScraper{
		article:     article,
		api:         api,
		newRenderer: newRenderer,
		logger:      slog.Default().With("component", "adidas_scraper", "article", article),
	}
}

func (s *AdidasScraper) apiURL() string {
	return fmt.Sprintf(adidasAPIURLTemplate, s.article)
}

// FetchRawProduct returns the product payload from the API, falling
// back to a rendered page when the API is unreachable or answers badly.
func (s *AdidasScraper) FetchRawProduct(ctx context.Context) (*adidasRawProduct, error) {
	var payload adidasProductPayload
	err := s.api.GetJSON(ctx, s.apiURL(), &payload)
	if err == nil {
		return &adidasRawProduct{payload: &payload}, nil
	}
	if !isFallbackWorthy(err) {
		return nil, err
	}

	s.logger.Warn("product API failed, falling back to rendered page", "error", err)

	text, renderErr := s.renderPageText(ctx, fmt.Sprintf(adidasPageURLTemplate, s.article))
	if renderErr != nil {
		return nil, fmt.Errorf("api failed (%w); render fallback failed: %v", err, renderErr)
	}

	return &adidasRawProduct{pageText: text}, nil
}

// FetchRawAvailability returns the availability payload from the API,
// falling back to scraping size options off the rendered product page.
func (s *AdidasScraper) FetchRawAvailability(ctx context.Context) (*adidasAvailabilityPayload, error) {
	var payload adidasAvailabilityPayload
	err := s.api.GetJSON(ctx, s.apiURL()+"/availability", &payload)
	if err == nil {
		return &payload, nil
	}
	if !isFallbackWorthy(err) {
		return nil, err
	}

	s.logger.Warn("availability API failed, falling back to rendered page", "error", err)

	return s.fetchAvailabilityRendered(ctx)
}

func (s *AdidasScraper) fetchAvailabilityRendered(ctx context.Context) (*adidasAvailabilityPayload, error) {
	renderer, err := s.newRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer renderer.Close()

	html, err := renderer.RenderPage(ctx, fmt.Sprintf(adidasPageURLTemplate, s.article))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered page: %w", err)
	}

	options := doc.Find("div.size-option")
	if options.Length() == 0 {
		return nil, &ExtractionError{Brand: models.BrandAdidas, Selector: "div.size-option"}
	}

	payload := &adidasAvailabilityPayload{}
	options.Each(func(_ int, sel *goquery.Selection) {
		size := strings.TrimSpace(sel.Text())
		if size == "" {
			return
		}
		payload.VariationList = append(payload.VariationList, struct {
			Size               string `json:"size"`
			AvailabilityStatus string `json:"availability_status"`
		}{Size: size, AvailabilityStatus: statusInStock})
	})

	return payload, nil
}

func (s *AdidasScraper) renderPageText(ctx context.Context, url string) (string, error) {
	renderer, err := s.newRenderer()
	if err != nil {
		return "", fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer renderer.Close()

	html, err := renderer.RenderPage(ctx, url)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered page: %w", err)
	}

	return strings.TrimSpace(doc.Text()), nil
}

// isFallbackWorthy reports whether an API error is a reachability or
// upstream problem that the rendering strategy might recover from.
func isFallbackWorthy(err error) bool {
	var network *fetch.NetworkError
	var upstream *fetch.UpstreamError
	return errors.As(err, &network) || errors.As(err, &upstream)
}

// AdidasParser builds the canonical record from the scraper's raw
// payloads.
type AdidasParser struct {
	product      *adidasRawProduct
	availability *adidasAvailabilityPayload
}

func NewAdidasParser(product *adidasRawProduct, availability *adidasAvailabilityPayload) *AdidasParser {
	return &AdidasParser{product: product, availability: availability}
}

func (p *AdidasParser) ProductData(_ context.Context) (*models.Shoe, error) {
	info := p.product.payload
	if info == nil {
		// Render fallback carries page text only; the structured keys
		// the record requires are absent.
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "id"}
	}

	switch {
	case info.ID == "":
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "id"}
	case info.Name == "":
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "name"}
	case info.MetaData.Canonical == "":
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "meta_data.canonical"}
	case len(info.ViewList) == 0 || info.ViewList[0].ImageURL == "":
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "view_list.image_url"}
	case info.PricingInformation.StandardPrice == "":
		return nil, &MissingFieldError{Brand: models.BrandAdidas, Field: "pricing_information.standard_price"}
	}

	price, err := normalize.Money(info.PricingInformation.StandardPrice.String())
	if err != nil {
		return nil, err
	}

	shoe := &models.Shoe{
		Article:     info.ID,
		Name:        info.Name,
		URL:         absoluteURL("https://www.adidas.com", info.MetaData.Canonical),
		Image:       info.ViewList[0].ImageURL,
		Price:       price,
		Sizes:       p.availableSizes(),
		Description: info.ProductDescription.Text,
		ParsedFrom:  models.BrandAdidas,
	}

	if raw := info.PricingInformation.SalePrice.String(); raw != "" {
		sale, err := normalize.Money(raw)
		if err != nil {
			return nil, err
		}
		shoe.SalePrice = &sale
	}

	return shoe, nil
}

// availableSizes keeps in-stock men's sizes only, normalized and
// deduplicated in ascending order. Tokens that fail normalization are
// dropped silently.
func (p *AdidasParser) availableSizes() []string {
	var sizes []string
	for _, variation := range p.availability.VariationList {
		if variation.AvailabilityStatus != statusInStock {
			continue
		}
		if !strings.Contains(variation.Size, "M") {
			continue
		}
		if size, ok := normalize.Size(variation.Size); ok {
			sizes = append(sizes, size)
		}
	}
	return normalize.SortSizes(sizes)
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
