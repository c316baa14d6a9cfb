package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rankwatch/models"
	"rankwatch/scraper"
)

type fakeScraper struct {
	saved []models.ScrapedProduct
	err   error

	productID   int64
	platformIDs []int64
}

func (f *fakeScraper) Scrape(ctx context.Context, productID int64, platformIDs []int64) ([]models.ScrapedProduct, error) {
	f.productID = productID
	f.platformIDs = platformIDs
	return f.saved, f.err
}

func postScrape(t *testing.T, fake *fakeScraper, body string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(nil, nil, fake, nil)
	req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleScrape_Success(t *testing.T) {
	fake := &fakeScraper{saved: []models.ScrapedProduct{
		{ProductID: 5, PlatformID: 1, SearchPosition: 1},
	}}

	rec := postScrape(t, fake, `{"product_id": 5, "platform_ids": [1, 2]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.productID != 5 {
		t.Fatalf("expected product 5, got %d", fake.productID)
	}
	if len(fake.platformIDs) != 2 {
		t.Fatalf("expected 2 platform ids, got %v", fake.platformIDs)
	}

	var saved []models.ScrapedProduct
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 record, got %d", len(saved))
	}
}

func TestHandleScrape_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"product not found", scraper.ErrProductNotFound{ProductID: 5}, http.StatusNotFound},
		{"no products found", scraper.ErrNoProductsFound{}, http.StatusNotFound},
		{"model invocation", scraper.ErrModelInvocation{Err: errors.New("quota")}, http.StatusBadGateway},
		{"page load", scraper.ErrPageLoad{URL: "x", Err: errors.New("timeout")}, http.StatusBadRequest},
		{"bad schema", scraper.ErrBadSchema{Detail: "no products key"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := postScrape(t, &fakeScraper{err: tc.err}, `{"product_id": 5}`)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestHandleScrape_MissingProductID(t *testing.T) {
	rec := postScrape(t, &fakeScraper{}, `{"platform_ids": [1]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleScrape_InvalidBody(t *testing.T) {
	rec := postScrape(t, &fakeScraper{}, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
