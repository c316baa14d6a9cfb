package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"rankwatch/models"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestExtractProduct_Basic(t *testing.T) {
	markup := loadFixture(t, "product_basic.html")
	selectors := models.SelectorMap{
		Title:        ".product-title",
		Price:        ".price-value",
		Currency:     ".price-currency",
		Rating:       models.RatingSelector{Selector: ".product-rating"},
		ReviewsCount: ".product-reviews",
		Availability: ".product-availability",
	}

	record, err := ExtractProduct(markup, "https://rozetka.com.ua/p1", selectors, 7, 3, 2)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if record.ProductID != 7 || record.PlatformID != 3 {
		t.Fatalf("unexpected ids: product %d platform %d", record.ProductID, record.PlatformID)
	}
	if record.SearchPosition != 2 {
		t.Fatalf("expected position 2, got %d", record.SearchPosition)
	}
	if record.URLOnPlatform != "https://rozetka.com.ua/p1" {
		t.Fatalf("unexpected URL %s", record.URLOnPlatform)
	}
	if record.NameOnPlatform != "Kavova mashyna DeLonghi ECAM 22.110" {
		t.Fatalf("unexpected name %q", record.NameOnPlatform)
	}
	if record.Price != 1299.99 {
		t.Fatalf("expected price 1299.99, got %v", record.Price)
	}
	if record.Currency != "UAH" {
		t.Fatalf("expected currency UAH, got %s", record.Currency)
	}
	if record.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", record.Rating)
	}
	if record.ReviewsCount != 1024 {
		t.Fatalf("expected 1024 reviews, got %d", record.ReviewsCount)
	}
	if record.AvailabilityStatus != "In stock" {
		t.Fatalf("unexpected availability %q", record.AvailabilityStatus)
	}
}

func TestExtractProduct_PercentRating(t *testing.T) {
	markup := loadFixture(t, "product_percent.html")
	selectors := models.SelectorMap{
		Title:        ".goods-title",
		Price:        ".goods-price",
		Rating:       models.RatingSelector{Selector: ".stars-fill", PercentAttr: "style"},
		ReviewsCount: ".goods-reviews",
	}

	record, err := ExtractProduct(markup, "https://prom.ua/p2", selectors, 1, 2, 1)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if record.Price != 17999 {
		t.Fatalf("expected price 17999, got %v", record.Price)
	}
	if record.Rating != 4.0 {
		t.Fatalf("expected rating 4.0 from 80%%, got %v", record.Rating)
	}
	if record.ReviewsCount != 37 {
		t.Fatalf("expected 37 reviews, got %d", record.ReviewsCount)
	}
	if record.Currency != DefaultCurrency {
		t.Fatalf("expected default currency, got %s", record.Currency)
	}
	if record.AvailabilityStatus != DefaultAvailability {
		t.Fatalf("expected default availability, got %s", record.AvailabilityStatus)
	}
}

func TestExtractProduct_AllDefaults(t *testing.T) {
	markup := loadFixture(t, "product_empty.html")
	selectors := models.SelectorMap{
		Title:        ".missing-title",
		Price:        ".missing-price",
		Currency:     ".missing-currency",
		Rating:       models.RatingSelector{Selector: ".missing-rating"},
		ReviewsCount: ".missing-reviews",
		Availability: ".missing-availability",
	}

	record, err := ExtractProduct(markup, "https://rozetka.com.ua/p3", selectors, 1, 1, 1)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if record.NameOnPlatform != "" {
		t.Fatalf("expected empty name, got %q", record.NameOnPlatform)
	}
	if record.Price != 0 {
		t.Fatalf("expected price 0, got %v", record.Price)
	}
	if record.Currency != DefaultCurrency {
		t.Fatalf("expected currency %s, got %s", DefaultCurrency, record.Currency)
	}
	if record.Rating != 0 {
		t.Fatalf("expected rating 0, got %v", record.Rating)
	}
	if record.ReviewsCount != 0 {
		t.Fatalf("expected 0 reviews, got %d", record.ReviewsCount)
	}
	if record.AvailabilityStatus != DefaultAvailability {
		t.Fatalf("expected availability %s, got %s", DefaultAvailability, record.AvailabilityStatus)
	}
}

func TestExtractProduct_EmptySelectors(t *testing.T) {
	markup := loadFixture(t, "product_basic.html")

	record, err := ExtractProduct(markup, "https://rozetka.com.ua/p4", models.SelectorMap{}, 1, 1, 1)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if record.NameOnPlatform != "" || record.Price != 0 || record.Rating != 0 {
		t.Fatalf("expected defaults, got %+v", record)
	}
}
