package models

import "testing"

func TestPlatformSearchURL(t *testing.T) {
	p := Platform{SearchURLTemplate: "https://rozetka.com.ua/search/?text={search}"}

	got := p.SearchURL("кавова машина")
	want := "https://rozetka.com.ua/search/?text=кавова машина"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlatformSearchURL_NoPlaceholder(t *testing.T) {
	p := Platform{SearchURLTemplate: "https://example.com/search"}

	if got := p.SearchURL("anything"); got != "https://example.com/search" {
		t.Fatalf("template without placeholder must pass through, got %q", got)
	}
}

func TestValidateBounds(t *testing.T) {
	valid := ScrapedProduct{Price: 0, Rating: 0, ReviewsCount: 0, SearchPosition: 1}
	if err := valid.ValidateBounds(); err != nil {
		t.Fatalf("extraction defaults must validate: %v", err)
	}

	cases := []struct {
		name   string
		record ScrapedProduct
	}{
		{"negative price", ScrapedProduct{Price: -1}},
		{"rating below range", ScrapedProduct{Rating: -0.1}},
		{"rating above range", ScrapedProduct{Rating: 5.1}},
		{"negative reviews", ScrapedProduct{ReviewsCount: -3}},
		{"negative position", ScrapedProduct{SearchPosition: -1}},
	}
	for _, tc := range cases {
		if err := tc.record.ValidateBounds(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
