// Package normalize converts raw site-specific strings into canonical
// forms shared by every brand parser.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidPriceFormat = errors.New("invalid price format")

// Size normalizes a raw shoe size token: the "M" men's marker and
// whitespace are stripped, multi-format notations like "M9 / W10" keep
// only the first segment, and the result is accepted only if it parses
// as a plain number with at most one decimal point. Rejected tokens
// return ok=false and must be skipped by the caller, not treated as an
// error.
func Size(raw string) (string, bool) {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "M", ""))

	if idx := strings.Index(text, "/"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.ReplaceAll(text, " ", "")

	if text == "" {
		return "", false
	}

	digits := strings.Replace(text, ".", "", 1)
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if digits == "" {
		return "", false
	}

	return text, true
}

// Money extracts a fixed-point decimal from price text. Currency
// symbols, thousands separators and whitespace are discarded; anything
// left that does not form a valid number fails with
// ErrInvalidPriceFormat.
func Money(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	filtered := b.String()
	if filtered == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPriceFormat, raw)
	}

	d, err := decimal.NewFromString(filtered)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPriceFormat, raw)
	}

	return d, nil
}

// SortSizes deduplicates normalized size tokens and orders them by
// numeric value ascending.
func SortSizes(sizes []string) []string {
	seen := make(map[string]struct{}, len(sizes))
	unique := make([]string, 0, len(sizes))
	for _, s := range sizes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	sort.Slice(unique, func(i, j int) bool {
		a, _ := strconv.ParseFloat(unique[i], 64)
		b, _ := strconv.ParseFloat(unique[j], 64)
		return a < b
	})

	return unique
}
