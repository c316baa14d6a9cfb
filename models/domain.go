package models

import (
	"fmt"
	"strings"
	"time"
)

// SearchPlaceholder is the token a platform's search URL template must
// contain; it is replaced with the product's query string at scrape time.
const SearchPlaceholder = "{search}"

// Platform is an e-commerce site being monitored.
type Platform struct {
	ID                int64  `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	BaseURL           string `json:"base_url" db:"base_url"`
	SearchURLTemplate string `json:"search_url_template" db:"search_url_template"`
}

// SearchURL substitutes the product query into the platform's template.
func (p *Platform) SearchURL(query string) string {
	return strings.ReplaceAll(p.SearchURLTemplate, SearchPlaceholder, query)
}

// Product is a global, platform-independent item of interest.
type Product struct {
	ID              int64  `json:"id" db:"id"`
	GlobalQueryName string `json:"global_query_name" db:"global_query_name"`
	Description     string `json:"description" db:"description"`
}

// ScrapedProduct is one time-series snapshot of a product on a platform.
// Rows are created by the field extractor and never mutated within a run;
// ID and ScrapedAt are assigned by the store on bulk insert.
type ScrapedProduct struct {
	ID                 int64     `json:"id" db:"id"`
	ProductID          int64     `json:"product_id" db:"product_id"`
	PlatformID         int64     `json:"platform_id" db:"platform_id"`
	URLOnPlatform      string    `json:"url_on_platform" db:"url_on_platform"`
	NameOnPlatform     string    `json:"name_on_platform" db:"name_on_platform"`
	Price              float64   `json:"price" db:"price"`
	Currency           string    `json:"currency" db:"currency"`
	Rating             float64   `json:"rating" db:"rating"`
	ReviewsCount       int       `json:"reviews_count" db:"reviews_count"`
	AvailabilityStatus string    `json:"availability_status" db:"availability_status"`
	SearchPosition     int       `json:"search_position" db:"search_position"`
	ScrapedAt          time.Time `json:"scraped_at" db:"scraped_at"`
}

// ValidateBounds checks the numeric domain bounds enforced at the
// persistence boundary. Extraction defaults (zero price, zero rating) all
// pass; only out-of-range values are rejected.
func (r *ScrapedProduct) ValidateBounds() error {
	if r.Price < 0 {
		return fmt.Errorf("price must be non-negative, got %v", r.Price)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("rating must be within [0, 5], got %v", r.Rating)
	}
	if r.ReviewsCount < 0 {
		return fmt.Errorf("reviews_count must be non-negative, got %d", r.ReviewsCount)
	}
	if r.SearchPosition < 0 {
		return fmt.Errorf("search_position must be non-negative, got %d", r.SearchPosition)
	}
	return nil
}

// RegressionModel stores one trained OLS fit relating price, rating and
// review count to search position on a platform.
type RegressionModel struct {
	ID               int64              `json:"id" db:"id"`
	Name             string             `json:"name" db:"name"`
	TargetVariable   string             `json:"target_variable" db:"target_variable"`
	FeatureVariables []string           `json:"feature_variables" db:"feature_variables"`
	Coefficients     map[string]float64 `json:"coefficients" db:"coefficients"`
	Intercept        float64            `json:"intercept" db:"intercept"`
	RSquared         float64            `json:"r_squared" db:"r_squared"`
	PlatformID       *int64             `json:"platform_id" db:"platform_id"`
	LastTrainedAt    time.Time          `json:"last_trained_at" db:"last_trained_at"`
}
