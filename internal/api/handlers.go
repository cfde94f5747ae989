package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kickscout/sneaker-tracker/internal/models"
	"github.com/kickscout/sneaker-tracker/internal/scrape"
)

// Orchestrator runs one scrape request end to end.
type Orchestrator interface {
	Scrape(ctx context.Context, article string, brands []models.Brand) (*models.Shoe, bool, error)
}

// Store is the slice of the database the handlers need.
type Store interface {
	GetShoe(ctx context.Context, article string) (*models.Shoe, error)
	ListShoes(ctx context.Context, limit, offset int) ([]*models.Shoe, error)
	DeleteShoe(ctx context.Context, article string) (bool, error)
	TrendingShoes(ctx context.Context, limit int) ([]*models.Shoe, error)
	GetPriceHistory(ctx context.Context, article string, limit int) ([]*models.PricePoint, error)
	CreateWatch(ctx context.Context, watch *models.PriceWatch) (*models.PriceWatch, error)
	ListWatches(ctx context.Context) ([]*models.PriceWatch, error)
	DeleteWatch(ctx context.Context, id string) (bool, error)
}

type Handlers struct {
	store        Store
	orchestrator Orchestrator
	trending     *TrendingCache
	logger       *slog.Logger
	batchLimit   int
}

func NewHandlers(store Store, orchestrator Orchestrator, trending *TrendingCache, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:        store,
		orchestrator: orchestrator,
		trending:     trending,
		logger:       logger,
		batchLimit:   3,
	}
}

// ScrapeRequest asks for one article to be scraped against an ordered
// brand list.
type ScrapeRequest struct {
	Article string   `json:"article"`
	Brands  []string `json:"brands"`
}

// ScrapeResponse carries the stored record and whether it was new.
type ScrapeResponse struct {
	Shoe    *models.Shoe `json:"shoe,omitempty"`
	Created bool         `json:"created"`
	Error   string       `json:"error,omitempty"`
}

// Scrape handles single-article scrape requests.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Article == "" {
		h.respondError(w, http.StatusBadRequest, "article is required")
		return
	}
	if len(req.Brands) == 0 {
		req.Brands = brandStrings(models.KnownBrands)
	}

	shoe, created, err := h.orchestrator.Scrape(r.Context(), req.Article, toBrands(req.Brands))
	if err != nil {
		h.respondScrapeError(w, req.Article, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, ScrapeResponse{Shoe: shoe, Created: created})
}

// BatchScrapeRequest asks for several articles in one call.
type BatchScrapeRequest struct {
	Requests []ScrapeRequest `json:"requests"`
}

type BatchScrapeResponse struct {
	Results []ScrapeResponse `json:"results"`
}

// ScrapeBatch runs the requested scrapes with bounded concurrency and
// returns one result per request, in request order.
func (h *Handlers) ScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Requests) == 0 {
		h.respondError(w, http.StatusBadRequest, "requests is required")
		return
	}

	results := make([]ScrapeResponse, len(req.Requests))
	sem := make(chan struct{}, h.batchLimit)
	var wg sync.WaitGroup

	for i, sr := range req.Requests {
		wg.Add(1)
		go func(i int, sr ScrapeRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if sr.Article == "" {
				results[i] = ScrapeResponse{Error: "article is required"}
				return
			}
			brands := sr.Brands
			if len(brands) == 0 {
				brands = brandStrings(models.KnownBrands)
			}

			shoe, created, err := h.orchestrator.Scrape(r.Context(), sr.Article, toBrands(brands))
			if err != nil {
				results[i] = ScrapeResponse{Error: err.Error()}
				return
			}
			results[i] = ScrapeResponse{Shoe: shoe, Created: created}
		}(i, sr)
	}
	wg.Wait()

	h.respondJSON(w, http.StatusOK, BatchScrapeResponse{Results: results})
}

// GetShoe returns a stored record by article.
func (h *Handlers) GetShoe(w http.ResponseWriter, r *http.Request) {
	article := chi.URLParam(r, "article")

	shoe, err := h.store.GetShoe(r.Context(), article)
	if err != nil {
		h.logger.Error("failed to get shoe", "article", article, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get shoe")
		return
	}
	if shoe == nil {
		h.respondError(w, http.StatusNotFound, "shoe not found")
		return
	}

	h.respondJSON(w, http.StatusOK, shoe)
}

// ListShoes returns stored records, most recently updated first.
func (h *Handlers) ListShoes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	shoes, err := h.store.ListShoes(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list shoes", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list shoes")
		return
	}

	h.respondJSON(w, http.StatusOK, shoes)
}

// DeleteShoe removes a stored record.
func (h *Handlers) DeleteShoe(w http.ResponseWriter, r *http.Request) {
	article := chi.URLParam(r, "article")

	deleted, err := h.store.DeleteShoe(r.Context(), article)
	if err != nil {
		h.logger.Error("failed to delete shoe", "article", article, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete shoe")
		return
	}
	if !deleted {
		h.respondError(w, http.StatusNotFound, "shoe not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory returns the recorded price snapshots for an article.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	article := chi.URLParam(r, "article")
	limit := queryInt(r, "limit", 100)

	points, err := h.store.GetPriceHistory(r.Context(), article, limit)
	if err != nil {
		h.logger.Error("failed to get price history", "article", article, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	h.respondJSON(w, http.StatusOK, points)
}

// Trending returns the most rescrape-requested shoes, served from the
// cache when it is fresh.
func (h *Handlers) Trending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	shoes, err := h.trending.Get(r.Context(), limit, func(ctx context.Context) ([]*models.Shoe, error) {
		return h.store.TrendingShoes(ctx, limit)
	})
	if err != nil {
		h.logger.Error("failed to get trending shoes", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get trending shoes")
		return
	}

	h.respondJSON(w, http.StatusOK, shoes)
}

// CreateWatchRequest registers a price watch.
type CreateWatchRequest struct {
	ChatID       string `json:"chat_id"`
	Article      string `json:"article"`
	DesiredPrice string `json:"desired_price"`
}

// CreateWatch handles watch registration.
func (h *Handlers) CreateWatch(w http.ResponseWriter, r *http.Request) {
	var req CreateWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ChatID == "" || req.Article == "" {
		h.respondError(w, http.StatusBadRequest, "chat_id and article are required")
		return
	}
	desired, err := decimal.NewFromString(req.DesiredPrice)
	if err != nil || desired.IsNegative() {
		h.respondError(w, http.StatusBadRequest, "desired_price must be a non-negative decimal")
		return
	}

	watch, err := h.store.CreateWatch(r.Context(), &models.PriceWatch{
		ChatID:       req.ChatID,
		Article:      req.Article,
		DesiredPrice: desired,
	})
	if err != nil {
		h.logger.Error("failed to create watch", "article", req.Article, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create watch")
		return
	}

	h.respondJSON(w, http.StatusCreated, watch)
}

// ListWatches returns every active watch.
func (h *Handlers) ListWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := h.store.ListWatches(r.Context())
	if err != nil {
		h.logger.Error("failed to list watches", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list watches")
		return
	}

	h.respondJSON(w, http.StatusOK, watches)
}

// DeleteWatch cancels a watch.
func (h *Handlers) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watchID")

	deleted, err := h.store.DeleteWatch(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete watch", "watch_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete watch")
		return
	}
	if !deleted {
		h.respondError(w, http.StatusNotFound, "watch not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondScrapeError maps orchestrator failures onto HTTP statuses.
func (h *Handlers) respondScrapeError(w http.ResponseWriter, article string, err error) {
	var notFound *scrape.ArticleNotFoundError
	var allFailed *scrape.AllFailedError

	switch {
	case errors.Is(err, scrape.ErrNoValidBrand):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &allFailed):
		h.logger.Error("all sources failed", "article", article, "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("scrape failed", "article", article, "error", err)
		h.respondError(w, http.StatusInternalServerError, "scrape failed")
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

func toBrands(names []string) []models.Brand {
	brands := make([]models.Brand, 0, len(names))
	for _, name := range names {
		brands = append(brands, models.Brand(name))
	}
	return brands
}

func brandStrings(brands []models.Brand) []string {
	names := make([]string, 0, len(brands))
	for _, brand := range brands {
		names = append(names, string(brand))
	}
	return names
}
