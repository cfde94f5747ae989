package scrape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// ErrNoValidBrand is returned when the caller's brand list is empty or
// contains no known brand. No scraping attempt is made.
var ErrNoValidBrand = errors.New("no valid brand in request")

// ExtractionError reports markup that no longer matches a brand's
// expected structure. Retrying the same brand would fail identically.
type ExtractionError struct {
	Brand    models.Brand
	Selector string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: selector %q not found in page", e.Brand, e.Selector)
}

// MissingFieldError reports a raw payload lacking a key the parser
// requires. It is never silently defaulted: a malformed source document
// must not produce a corrupted canonical record.
type MissingFieldError struct {
	Brand models.Brand
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing expected field %q", e.Brand, e.Field)
}

// BrandFailure pairs a brand with the reason its attempt failed.
type BrandFailure struct {
	Brand models.Brand
	Err   error
}

// AllFailedError aggregates the per-brand failures after every brand in
// the request raised an error.
type AllFailedError struct {
	Article  string
	Failures []BrandFailure
}

func (e *AllFailedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Brand, f.Err)
	}
	return fmt.Sprintf("all sources failed for article %q: %s", e.Article, strings.Join(parts, "; "))
}

// ArticleNotFoundError is returned when at least one brand produced a
// record but none matched the requested article.
type ArticleNotFoundError struct {
	Requested string
	Found     []string
}

func (e *ArticleNotFoundError) Error() string {
	return fmt.Sprintf("article %q not found: sources returned %s",
		e.Requested, strings.Join(e.Found, ", "))
}
