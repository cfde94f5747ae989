package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/scrape"
)

type fakeStore struct {
	shoes   map[string]*models.Shoe
	history []*models.Shoe
	watches map[string]*models.PriceWatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shoes:   make(map[string]*models.Shoe),
		watches: make(map[string]*models.PriceWatch),
	}
}

func (f *fakeStore) GetShoe(_ context.Context, article string) (*models.Shoe, error) {
	return f.shoes[article], nil
}

func (f *fakeStore) ListShoes(_ context.Context, _, _ int) ([]*models.Shoe, error) {
	var shoes []*models.Shoe
	for _, shoe := range f.shoes {
		shoes = append(shoes, shoe)
	}
	return shoes, nil
}

func (f *fakeStore) DeleteShoe(_ context.Context, article string) (bool, error) {
	_, ok := f.shoes[article]
	delete(f.shoes, article)
	return ok, nil
}

func (f *fakeStore) TrendingShoes(_ context.Context, _ int) ([]*models.Shoe, error) {
	return f.ListShoes(context.Background(), 0, 0)
}

func (f *fakeStore) GetPriceHistory(_ context.Context, article string, _ int) ([]*models.PricePoint, error) {
	var points []*models.PricePoint
	for _, shoe := range f.history {
		if shoe.Article == article {
			points = append(points, &models.PricePoint{Article: article, Price: shoe.Price})
		}
	}
	return points, nil
}

func (f *fakeStore) CreateWatch(_ context.Context, watch *models.PriceWatch) (*models.PriceWatch, error) {
	stored := *watch
	stored.ID = fmt.Sprintf("watch-%d", len(f.watches)+1)
	f.watches[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeStore) ListWatches(_ context.Context) ([]*models.PriceWatch, error) {
	var watches []*models.PriceWatch
	for _, watch := range f.watches {
		watches = append(watches, watch)
	}
	return watches, nil
}

func (f *fakeStore) DeleteWatch(_ context.Context, id string) (bool, error) {
	_, ok := f.watches[id]
	delete(f.watches, id)
	return ok, nil
}

type fakeOrchestrator struct {
	err     error
	created bool
}

func (f *fakeOrchestrator) Scrape(_ context.Context, article string, brands []models.Brand) (*models.Shoe, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	price, _ := decimal.NewFromString("129.99")
	return &models.Shoe{
		Article:    article,
		Name:       "Samba OG",
		Price:      price,
		ParsedFrom: brands[0],
	}, f.created, nil
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return f.allowed, nil
}

func newTestServer(store *fakeStore, orch *fakeOrchestrator, limiter Limiter) *httptest.Server {
	logger := slog.Default()
	h := NewHandlers(store, orch, NewTrendingCache(nil, 0, logger), logger)
	health := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	return httptest.NewServer(NewRouter(h, limiter, health, logger))
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestScrapeEndpointCreated(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(store, &fakeOrchestrator{created: true}, nil)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/scrape", ScrapeRequest{Article: "DX1234", Brands: []string{"Adidas"}})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[ScrapeResponse](t, resp)
	assert.True(t, body.Created)
	assert.Equal(t, "DX1234", body.Shoe.Article)
}

func TestScrapeEndpointUpdatedIsOK(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{created: false}, nil)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/scrape", ScrapeRequest{Article: "DX1234"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScrapeEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "no valid brand", err: scrape.ErrNoValidBrand, status: http.StatusBadRequest},
		{
			name:   "article not found",
			err:    &scrape.ArticleNotFoundError{Requested: "DX1234", Found: []string{"XYZ999"}},
			status: http.StatusNotFound,
		},
		{
			name: "all sources failed",
			err: &scrape.AllFailedError{Article: "DX1234", Failures: []scrape.BrandFailure{
				{Brand: models.BrandAdidas, Err: fmt.Errorf("blocked")},
			}},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(newFakeStore(), &fakeOrchestrator{err: tt.err}, nil)
			defer server.Close()

			resp := postJSON(t, server.URL+"/api/v1/scrape", ScrapeRequest{Article: "DX1234"})
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestScrapeEndpointRequiresArticle(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{}, nil)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/scrape", ScrapeRequest{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScrapeBatchKeepsRequestOrder(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{created: true}, nil)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/scrape/batch", BatchScrapeRequest{
		Requests: []ScrapeRequest{
			{Article: "AAA111"},
			{Article: ""},
			{Article: "CCC333"},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[BatchScrapeResponse](t, resp)
	require.Len(t, body.Results, 3)
	assert.Equal(t, "AAA111", body.Results[0].Shoe.Article)
	assert.Equal(t, "article is required", body.Results[1].Error)
	assert.Equal(t, "CCC333", body.Results[2].Shoe.Article)
}

func TestGetHistory(t *testing.T) {
	store := newFakeStore()
	price, _ := decimal.NewFromString("129.99")
	store.history = append(store.history, &models.Shoe{Article: "DX1234", Price: price})
	server := newTestServer(store, &fakeOrchestrator{}, nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/shoes/DX1234/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	points := decodeBody[[]*models.PricePoint](t, resp)
	require.Len(t, points, 1)
	assert.Equal(t, "DX1234", points[0].Article)
	assert.Equal(t, "129.99", points[0].Price.String())
}

func TestGetShoeNotFound(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{}, nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/shoes/NOPE")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteShoe(t *testing.T) {
	store := newFakeStore()
	store.shoes["DX1234"] = &models.Shoe{Article: "DX1234"}
	server := newTestServer(store, &fakeOrchestrator{}, nil)
	defer server.Close()

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/shoes/DX1234", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.shoes)
}

func TestCreateWatchValidation(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{}, nil)
	defer server.Close()

	tests := []struct {
		name string
		req  CreateWatchRequest
	}{
		{name: "missing chat id", req: CreateWatchRequest{Article: "DX1234", DesiredPrice: "90"}},
		{name: "missing article", req: CreateWatchRequest{ChatID: "c1", DesiredPrice: "90"}},
		{name: "bad price", req: CreateWatchRequest{ChatID: "c1", Article: "DX1234", DesiredPrice: "ninety"}},
		{name: "negative price", req: CreateWatchRequest{ChatID: "c1", Article: "DX1234", DesiredPrice: "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/v1/watches", tt.req)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCreateWatchStoresWatch(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(store, &fakeOrchestrator{}, nil)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/watches", CreateWatchRequest{
		ChatID: "c1", Article: "DX1234", DesiredPrice: "89.99",
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	watch := decodeBody[models.PriceWatch](t, resp)
	assert.NotEmpty(t, watch.ID)
	assert.Equal(t, "89.99", watch.DesiredPrice.String())
	assert.Len(t, store.watches, 1)
}

func TestRateLimitRejects(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{}, &fakeLimiter{allowed: false})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/shoes/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHealthBypassesRateLimit(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeOrchestrator{}, &fakeLimiter{allowed: false})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
