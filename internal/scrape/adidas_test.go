package scrape

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kickscout/sneaker-tracker/internal/fetch"
	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adidasProductFixture = `{
	"id": "DX1234",
	"name": "Samba OG",
	"meta_data": {"canonical": "/samba-og-shoes/DX1234.html"},
	"pricing_information": {"standard_price": 129.99, "sale_price": 99.99},
	"product_description": {"text": "Classic court style."},
	"view_list": [{"image_url": "https://assets.adidas.com/images/DX1234.jpg"}]
}`

const adidasAvailabilityFixture = `{
	"variation_list": [
		{"size": "9M", "availability_status": "IN_STOCK"},
		{"size": "9.5M", "availability_status": "IN_STOCK"},
		{"size": "10M", "availability_status": "OUT_OF_STOCK"},
		{"size": "9M", "availability_status": "IN_STOCK"},
		{"size": "OS", "availability_status": "IN_STOCK"}
	]
}`

func adidasPayloads(t *testing.T, productJSON, availabilityJSON string) (*adidasRawProduct, *adidasAvailabilityPayload) {
	t.Helper()

	var product adidasProductPayload
	require.NoError(t, json.Unmarshal([]byte(productJSON), &product))

	var availability adidasAvailabilityPayload
	require.NoError(t, json.Unmarshal([]byte(availabilityJSON), &availability))

	return &adidasRawProduct{payload: &product}, &availability
}

func TestAdidasParserProductData(t *testing.T) {
	product, availability := adidasPayloads(t, adidasProductFixture, adidasAvailabilityFixture)

	shoe, err := NewAdidasParser(product, availability).ProductData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "DX1234", shoe.Article)
	assert.Equal(t, "Samba OG", shoe.Name)
	assert.Equal(t, "https://www.adidas.com/samba-og-shoes/DX1234.html", shoe.URL)
	assert.Equal(t, "https://assets.adidas.com/images/DX1234.jpg", shoe.Image)
	assert.Equal(t, "129.99", shoe.Price.String())
	require.NotNil(t, shoe.SalePrice)
	assert.Equal(t, "99.99", shoe.SalePrice.String())
	assert.Equal(t, models.BrandAdidas, shoe.ParsedFrom)
	assert.Equal(t, "Classic court style.", shoe.Description)

	// Out-of-stock and non-numeric tokens dropped, duplicates collapsed,
	// ascending numeric order.
	assert.Equal(t, []string{"9", "9.5"}, shoe.Sizes)
}

func TestAdidasParserMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *adidasProductPayload)
		field   string
	}{
		{name: "missing id", mutate: func(p *adidasProductPayload) { p.ID = "" }, field: "id"},
		{name: "missing name", mutate: func(p *adidasProductPayload) { p.Name = "" }, field: "name"},
		{name: "missing canonical url", mutate: func(p *adidasProductPayload) { p.MetaData.Canonical = "" }, field: "meta_data.canonical"},
		{name: "missing image", mutate: func(p *adidasProductPayload) { p.ViewList = nil }, field: "view_list.image_url"},
		{name: "missing price", mutate: func(p *adidasProductPayload) { p.PricingInformation.StandardPrice = "" }, field: "pricing_information.standard_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, availability := adidasPayloads(t, adidasProductFixture, adidasAvailabilityFixture)
			tt.mutate(product.payload)

			_, err := NewAdidasParser(product, availability).ProductData(context.Background())

			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
			assert.Equal(t, models.BrandAdidas, missing.Brand)
		})
	}
}

func TestAdidasParserRenderFallbackPayload(t *testing.T) {
	_, availability := adidasPayloads(t, adidasProductFixture, adidasAvailabilityFixture)
	product := &adidasRawProduct{pageText: "Samba OG Classic court style 129.99"}

	_, err := NewAdidasParser(product, availability).ProductData(context.Background())

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
}

func TestAdidasScraperFallsBackToRenderer(t *testing.T) {
	api := jsonFunc(func(ctx context.Context, url string, v any) error {
		return &fetch.UpstreamError{URL: url, Status: 403, Body: "blocked"}
	})

	factory := newFakeRendererFactory(map[string]string{
		"https://www.adidas.com/DX1234.html": `<html><body>
			<div class="size-option">9M</div>
			<div class="size-option">10M</div>
		</body></html>`,
	})

	scraper := NewAdidasScraper("DX1234", api, factory.new)

	raw, err := scraper.FetchRawProduct(context.Background())
	require.NoError(t, err)
	assert.Nil(t, raw.payload)
	assert.Contains(t, raw.pageText, "9M")

	availability, err := scraper.FetchRawAvailability(context.Background())
	require.NoError(t, err)
	require.Len(t, availability.VariationList, 2)
	assert.Equal(t, statusInStock, availability.VariationList[0].AvailabilityStatus)

	// Each fallback render owns one session and must release it.
	assert.Equal(t, 2, factory.created)
	assert.Equal(t, 2, factory.closed())
}

func TestAdidasScraperAvailabilityFallbackSelectorMissing(t *testing.T) {
	api := jsonFunc(func(ctx context.Context, url string, v any) error {
		return &fetch.NetworkError{URL: url, Err: context.DeadlineExceeded}
	})

	factory := newFakeRendererFactory(map[string]string{
		"https://www.adidas.com/DX1234.html": `<html><body><p>nothing here</p></body></html>`,
	})

	scraper := NewAdidasScraper("DX1234", api, factory.new)

	_, err := scraper.FetchRawAvailability(context.Background())

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, "div.size-option", extraction.Selector)
	assert.Equal(t, factory.created, factory.closed())
}
