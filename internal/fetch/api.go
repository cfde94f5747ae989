package fetch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const apiUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// APIClient issues JSON requests with browser-impersonating headers to
// get past basic bot filtering.
type APIClient struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewAPIClient(referer string) *APIClient {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", apiUserAgent).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetHeader("Connection", "keep-alive")

	if referer != "" {
		client.SetHeader("Referer", referer)
	}

	return &APIClient{
		http:   client,
		logger: slog.Default().With("component", "api_client"),
	}
}

// GetJSON fetches url and decodes the response body into v. A transport
// failure yields *NetworkError; a non-2xx status or invalid JSON body
// yields *UpstreamError carrying the status and body for diagnostics.
func (c *APIClient) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Debug("non-2xx response", "url", url, "status", resp.StatusCode())
		return &UpstreamError{URL: url, Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return &UpstreamError{URL: url, Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	return nil
}
