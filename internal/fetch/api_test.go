package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"DX1234","name":"Runner"}`))
		case "/not-json":
			w.Write([]byte(`<html>blocked</html>`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"not found"}`))
		}
	}))
	defer server.Close()

	client := NewAPIClient("")

	t.Run("decodes valid JSON", func(t *testing.T) {
		var payload struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		err := client.GetJSON(context.Background(), server.URL+"/ok", &payload)
		require.NoError(t, err)
		assert.Equal(t, "DX1234", payload.ID)
		assert.Equal(t, "Runner", payload.Name)
	})

	t.Run("non-200 yields UpstreamError with status and body", func(t *testing.T) {
		var payload map[string]any
		err := client.GetJSON(context.Background(), server.URL+"/missing", &payload)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusNotFound, upstream.Status)
		assert.Contains(t, upstream.Body, "not found")
	})

	t.Run("invalid JSON body yields UpstreamError", func(t *testing.T) {
		var payload map[string]any
		err := client.GetJSON(context.Background(), server.URL+"/not-json", &payload)

		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusOK, upstream.Status)
	})
}

func TestGetJSONTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewAPIClient("https://www.adidas.com/")

	var payload map[string]any
	err := client.GetJSON(context.Background(), url+"/anything", &payload)

	var network *NetworkError
	require.ErrorAs(t, err, &network)
}

func TestAPIClientImpersonationHeaders(t *testing.T) {
	var gotUA, gotReferer, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewAPIClient("https://www.adidas.com/")

	var payload map[string]any
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &payload))

	assert.Contains(t, gotUA, "Chrome")
	assert.Equal(t, "https://www.adidas.com/", gotReferer)
	assert.Contains(t, gotAccept, "application/json")
}
