package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Brand identifies the retail site a record was scraped from.
type Brand string

const (
	BrandAdidas Brand = "Adidas"
	BrandNike   Brand = "Nike"
)

// KnownBrands lists every brand with a registered scraper/parser pair.
var KnownBrands = []Brand{BrandAdidas, BrandNike}

func (b Brand) Known() bool {
	for _, known := range KnownBrands {
		if b == known {
			return true
		}
	}
	return false
}

// Shoe is the canonical product record produced by a successful parse.
// Prices are fixed-point decimals so downstream threshold comparisons
// do not suffer float rounding.
type Shoe struct {
	Article     string           `json:"article"`
	Name        string           `json:"name"`
	URL         string           `json:"url"`
	Image       string           `json:"image"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty"`
	Sizes       []string         `json:"sizes"`
	Description string           `json:"description"`
	ParsedFrom  Brand            `json:"parsed_from"`
	ScrapeCount int              `json:"scrape_count,omitempty"`
	CreatedAt   time.Time        `json:"created_at,omitzero"`
	UpdatedAt   time.Time        `json:"updated_at,omitzero"`
}

// EffectivePrice is the price a buyer would actually pay: the sale price
// when one is present, the standard price otherwise.
func (s *Shoe) EffectivePrice() decimal.Decimal {
	if s.SalePrice != nil {
		return *s.SalePrice
	}
	return s.Price
}

func (s *Shoe) Validate() []string {
	var errs []string

	if s.Article == "" {
		errs = append(errs, "article is required")
	}
	if s.Name == "" {
		errs = append(errs, "name is required")
	}
	if s.URL == "" {
		errs = append(errs, "url is required")
	}
	if s.Image == "" {
		errs = append(errs, "image is required")
	}
	if s.Price.IsNegative() {
		errs = append(errs, "price must not be negative")
	}

	return errs
}

// PricePoint is one entry of a shoe's recorded price history.
type PricePoint struct {
	Article    string           `json:"article"`
	Price      decimal.Decimal  `json:"price"`
	SalePrice  *decimal.Decimal `json:"sale_price,omitempty"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// PriceWatch is a user's request to be notified when a shoe's effective
// price drops to or below the desired price.
type PriceWatch struct {
	ID           string          `json:"id"`
	ChatID       string          `json:"chat_id"`
	Article      string          `json:"article"`
	DesiredPrice decimal.Decimal `json:"desired_price"`
	CreatedAt    time.Time       `json:"created_at,omitzero"`
}
