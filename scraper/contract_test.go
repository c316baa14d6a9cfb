package scraper

import (
	"errors"
	"testing"
)

func TestParseListings_Basic(t *testing.T) {
	response := "```json\n" + `{
		"products": [
			{"link": "https://rozetka.com.ua/p1", "search_position": 1},
			{"link": "https://rozetka.com.ua/p2", "search_position": 2}
		]
	}` + "\n```"

	links, err := ParseListings(response)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Link != "https://rozetka.com.ua/p1" || links[0].SearchPosition != 1 {
		t.Fatalf("unexpected first link %+v", links[0])
	}
	if links[1].SearchPosition != 2 {
		t.Fatalf("unexpected second position %d", links[1].SearchPosition)
	}
}

func TestParseListings_DropsBadEntries(t *testing.T) {
	response := `{
		"products": [
			{"link": "/relative/path", "search_position": 1},
			{"link": "https://rozetka.com.ua/ok", "search_position": 0},
			{"link": "https://rozetka.com.ua/good", "search_position": 3}
		]
	}`

	links, err := ParseListings(response)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link after filtering, got %d", len(links))
	}
	if links[0].Link != "https://rozetka.com.ua/good" {
		t.Fatalf("unexpected survivor %s", links[0].Link)
	}
}

func TestParseListings_EmptyArray(t *testing.T) {
	links, err := ParseListings(`{"products": []}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links, got %d", len(links))
	}
}

func TestParseListings_MissingProductsKey(t *testing.T) {
	_, err := ParseListings(`{"items": []}`)
	if err == nil {
		t.Fatal("expected error for missing products key")
	}
	var bad ErrBadSchema
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrBadSchema, got %T", err)
	}
}

func TestParseListings_InvalidJSON(t *testing.T) {
	_, err := ParseListings("the page has no products, sorry")
	var invalid ErrInvalidJSON
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidJSON, got %T (%v)", err, err)
	}
}

func TestParseSelectorMap_PlainRating(t *testing.T) {
	response := "```json\n" + `{
		"title_selector": ".title",
		"price_selector": ".price",
		"currency_selector": ".currency",
		"rating_selector": ".rating-value",
		"reviews_count_selector": ".reviews",
		"availability_selector": ".stock",
		"characteristics_selector": ".expand"
	}` + "\n```"

	selectors, err := ParseSelectorMap(response)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if selectors.Title != ".title" || selectors.Price != ".price" {
		t.Fatalf("unexpected selectors %+v", selectors)
	}
	if selectors.Rating.Selector != ".rating-value" {
		t.Fatalf("unexpected rating selector %+v", selectors.Rating)
	}
	if selectors.Rating.IsPercent() {
		t.Fatal("plain rating selector classified as percent mode")
	}
	if selectors.Characteristics != ".expand" {
		t.Fatalf("unexpected characteristics selector %q", selectors.Characteristics)
	}
}

func TestParseSelectorMap_PercentRating(t *testing.T) {
	response := `{
		"title_selector": ".title",
		"rating_selector": {"selector": ".stars-fill", "percent_attribute": "style"}
	}`

	selectors, err := ParseSelectorMap(response)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !selectors.Rating.IsPercent() {
		t.Fatal("expected percent mode")
	}
	if selectors.Rating.Selector != ".stars-fill" || selectors.Rating.PercentAttr != "style" {
		t.Fatalf("unexpected rating selector %+v", selectors.Rating)
	}
	// Omitted keys decode to empty selectors, not errors.
	if selectors.Price != "" || selectors.ReviewsCount != "" {
		t.Fatalf("expected empty omitted selectors, got %+v", selectors)
	}
}

func TestParseSelectorMap_NotAnObject(t *testing.T) {
	_, err := ParseSelectorMap(`[".title", ".price"]`)
	var bad ErrBadSchema
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrBadSchema, got %T (%v)", err, err)
	}
}
