package scrape

import (
	"context"
	"fmt"
	"sync"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// jsonFunc adapts a function to the JSONGetter interface.
type jsonFunc func(ctx context.Context, url string, v any) error

func (f jsonFunc) GetJSON(ctx context.Context, url string, v any) error {
	return f(ctx, url, v)
}

// fakeRenderer serves canned HTML by URL and counts Close calls.
type fakeRenderer struct {
	pages     map[string]string
	renderErr error
	closes    int
}

func (f *fakeRenderer) RenderPage(_ context.Context, url string) (string, error) {
	if f.renderErr != nil {
		return "", f.renderErr
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", url)
	}
	return html, nil
}

func (f *fakeRenderer) Close() error {
	f.closes++
	return nil
}

// fakeRendererFactory hands out fakeRenderers sharing one fixture set
// and tracks how many sessions were created and released.
type fakeRendererFactory struct {
	mu        sync.Mutex
	pages     map[string]string
	renderErr error
	created   int
	renderers []*fakeRenderer
}

func newFakeRendererFactory(pages map[string]string) *fakeRendererFactory {
	return &fakeRendererFactory{pages: pages}
}

func (f *fakeRendererFactory) new() (PageRenderer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := &fakeRenderer{pages: f.pages, renderErr: f.renderErr}
	f.renderers = append(f.renderers, r)
	f.created++
	return r, nil
}

func (f *fakeRendererFactory) closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, r := range f.renderers {
		total += r.closes
	}
	return total
}

// memStore is an in-memory persistence gateway.
type memStore struct {
	mu      sync.Mutex
	shoes   map[string]*models.Shoe
	upserts int
}

func newMemStore() *memStore {
	return &memStore{shoes: make(map[string]*models.Shoe)}
}

func (m *memStore) UpsertShoe(_ context.Context, shoe *models.Shoe) (*models.Shoe, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.shoes[shoe.Article]
	m.shoes[shoe.Article] = shoe
	m.upserts++
	return shoe, !exists, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shoes)
}
