package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rankwatch/models"
)

type fakePlatformStore struct {
	platforms   []models.Platform
	allIDsCalls int
}

func (f *fakePlatformStore) GetAllPlatformIDs(ctx context.Context) ([]int64, error) {
	f.allIDsCalls++
	ids := make([]int64, 0, len(f.platforms))
	for _, p := range f.platforms {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (f *fakePlatformStore) GetPlatformsByIDs(ctx context.Context, ids []int64) ([]models.Platform, error) {
	var result []models.Platform
	for _, p := range f.platforms {
		for _, id := range ids {
			if p.ID == id {
				result = append(result, p)
				break
			}
		}
	}
	return result, nil
}

type fakeProductStore struct {
	product *models.Product
}

func (f *fakeProductStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if f.product != nil && f.product.ID == id {
		return f.product, nil
	}
	return nil, nil
}

type fakeRecordStore struct {
	inserts  int
	received []models.ScrapedProduct
}

func (f *fakeRecordStore) BulkInsertScrapedProducts(ctx context.Context, rows []models.ScrapedProduct) ([]models.ScrapedProduct, error) {
	f.inserts++
	f.received = rows
	return rows, nil
}

// fakeModel pops scripted responses in call order. A response of "FAIL" makes
// the invocation error instead.
type fakeModel struct {
	responses []string
	calls     int
}

func (f *fakeModel) Invoke(ctx context.Context, prompt string) (string, error) {
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected model call %d", f.calls+1)
	}
	response := f.responses[f.calls]
	f.calls++
	if response == "FAIL" {
		return "", errors.New("quota exceeded")
	}
	return response, nil
}

type fakeSession struct {
	visited []string
	closes  int
}

func (f *fakeSession) Navigate(ctx context.Context, url string) (string, error) {
	f.visited = append(f.visited, url)
	return fmt.Sprintf(`<html><body><div class="name">item at %s</div></body></html>`, url), nil
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

func testOrchestrator(platforms *fakePlatformStore, products *fakeProductStore, records *fakeRecordStore, model *fakeModel, session *fakeSession) *Orchestrator {
	return NewOrchestrator(platforms, products, records, model, func() (PageNavigator, error) {
		return session, nil
	})
}

func twoPlatforms() *fakePlatformStore {
	return &fakePlatformStore{platforms: []models.Platform{
		{ID: 1, Name: "rozetka", BaseURL: "https://rozetka.test", SearchURLTemplate: "https://rozetka.test/search?q={search}"},
		{ID: 2, Name: "prom", BaseURL: "https://prom.test", SearchURLTemplate: "https://prom.test/search?q={search}"},
	}}
}

const selectorMapResponse = `{"title_selector": ".name"}`

func listingsResponse(links ...string) string {
	out := `{"products": [`
	for i, link := range links {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"link": %q, "search_position": %d}`, link, i+1)
	}
	return out + `]}`
}

func TestScrape_ProductNotFound(t *testing.T) {
	session := &fakeSession{}
	records := &fakeRecordStore{}
	o := testOrchestrator(twoPlatforms(), &fakeProductStore{}, records, &fakeModel{}, session)

	_, err := o.Scrape(context.Background(), 42, nil)
	var notFound ErrProductNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if notFound.ProductID != 42 {
		t.Fatalf("expected product id 42, got %d", notFound.ProductID)
	}
	if session.closes != 0 {
		t.Fatal("no session should be opened for an unknown product")
	}
	if records.inserts != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestScrape_EmptyPlatformSetFansOut(t *testing.T) {
	platforms := twoPlatforms()
	products := &fakeProductStore{product: &models.Product{ID: 1, GlobalQueryName: "kavova mashyna"}}
	records := &fakeRecordStore{}
	session := &fakeSession{}
	model := &fakeModel{responses: []string{
		listingsResponse("https://rozetka.test/p1"),
		listingsResponse("https://prom.test/p1"),
		selectorMapResponse,
		selectorMapResponse,
	}}
	o := testOrchestrator(platforms, products, records, model, session)

	saved, err := o.Scrape(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if platforms.allIDsCalls != 1 {
		t.Fatalf("expected one fan-out lookup, got %d", platforms.allIDsCalls)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 records, got %d", len(saved))
	}
	if session.visited[0] != "https://rozetka.test/search?q=kavova mashyna" {
		t.Fatalf("unexpected first search URL %s", session.visited[0])
	}
}

func TestScrape_NoProductsAnywhere(t *testing.T) {
	products := &fakeProductStore{product: &models.Product{ID: 1, GlobalQueryName: "widget"}}
	records := &fakeRecordStore{}
	session := &fakeSession{}
	model := &fakeModel{responses: []string{
		listingsResponse(),
		listingsResponse(),
	}}
	o := testOrchestrator(twoPlatforms(), products, records, model, session)

	_, err := o.Scrape(context.Background(), 1, nil)
	var empty ErrNoProductsFound
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrNoProductsFound, got %v", err)
	}
	if records.inserts != 0 {
		t.Fatal("store must not be invoked when no links were found")
	}
	if session.closes != 1 {
		t.Fatalf("expected session closed exactly once, got %d", session.closes)
	}
}

func TestScrape_RecordOrdering(t *testing.T) {
	products := &fakeProductStore{product: &models.Product{ID: 9, GlobalQueryName: "widget"}}
	records := &fakeRecordStore{}
	session := &fakeSession{}
	model := &fakeModel{responses: []string{
		listingsResponse("https://rozetka.test/a", "https://rozetka.test/b"),
		listingsResponse("https://prom.test/c"),
		selectorMapResponse,
		selectorMapResponse,
	}}
	o := testOrchestrator(twoPlatforms(), products, records, model, session)

	saved, err := o.Scrape(context.Background(), 9, []int64{1, 2})
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if len(saved) != 3 {
		t.Fatalf("expected 3 records, got %d", len(saved))
	}

	// Platform-outer, rank-inner ordering.
	expect := []struct {
		platformID int64
		position   int
		url        string
	}{
		{1, 1, "https://rozetka.test/a"},
		{1, 2, "https://rozetka.test/b"},
		{2, 1, "https://prom.test/c"},
	}
	for i, want := range expect {
		got := saved[i]
		if got.PlatformID != want.platformID || got.SearchPosition != want.position || got.URLOnPlatform != want.url {
			t.Fatalf("record %d: got platform %d pos %d url %s, want %+v",
				i, got.PlatformID, got.SearchPosition, got.URLOnPlatform, want)
		}
		if got.ProductID != 9 {
			t.Fatalf("record %d: unexpected product id %d", i, got.ProductID)
		}
		if got.NameOnPlatform == "" {
			t.Fatalf("record %d: extraction produced no name", i)
		}
	}

	if records.inserts != 1 {
		t.Fatalf("expected a single bulk insert, got %d", records.inserts)
	}
	// 2 model calls per platform: listing discovery and selector discovery.
	if model.calls != 4 {
		t.Fatalf("expected 4 model calls, got %d", model.calls)
	}
}

func TestScrape_ModelFailureMidRun(t *testing.T) {
	products := &fakeProductStore{product: &models.Product{ID: 1, GlobalQueryName: "widget"}}
	records := &fakeRecordStore{}
	session := &fakeSession{}
	model := &fakeModel{responses: []string{
		listingsResponse("https://rozetka.test/a"),
		listingsResponse("https://prom.test/c"),
		selectorMapResponse,
		"FAIL", // selector discovery for the second platform
	}}
	o := testOrchestrator(twoPlatforms(), products, records, model, session)

	_, err := o.Scrape(context.Background(), 1, nil)
	var invocation ErrModelInvocation
	if !errors.As(err, &invocation) {
		t.Fatalf("expected ErrModelInvocation, got %v", err)
	}
	if records.inserts != 0 {
		t.Fatal("a mid-run failure must not persist partial results")
	}
	if session.closes != 1 {
		t.Fatalf("expected session closed exactly once, got %d", session.closes)
	}
}

func TestScrape_BadListingSchema(t *testing.T) {
	products := &fakeProductStore{product: &models.Product{ID: 1, GlobalQueryName: "widget"}}
	records := &fakeRecordStore{}
	session := &fakeSession{}
	model := &fakeModel{responses: []string{`{"items": []}`}}
	o := testOrchestrator(twoPlatforms(), products, records, model, session)

	_, err := o.Scrape(context.Background(), 1, nil)
	var bad ErrBadSchema
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrBadSchema, got %v", err)
	}
	if session.closes != 1 {
		t.Fatalf("expected session closed exactly once, got %d", session.closes)
	}
	if records.inserts != 0 {
		t.Fatal("nothing should be persisted")
	}
}
