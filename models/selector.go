package models

import (
	"bytes"
	"encoding/json"
)

// RatingSelector is the two-shape selector for a product rating. Plain mode
// reads the numeric rating from the matched element's text. Percent mode
// reads the named attribute and converts a "<number>%" value to a 0-5 scale.
type RatingSelector struct {
	Selector    string `json:"selector"`
	PercentAttr string `json:"percent_attribute,omitempty"`
}

// IsPercent reports whether the selector is in percent-attribute mode.
func (r RatingSelector) IsPercent() bool {
	return r.PercentAttr != ""
}

// UnmarshalJSON accepts both shapes the discovery prompt allows: a bare
// selector string, or {"selector": ..., "percent_attribute": ...}.
func (r *RatingSelector) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = RatingSelector{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = RatingSelector{Selector: s}
		return nil
	}
	var obj struct {
		Selector    string `json:"selector"`
		PercentAttr string `json:"percent_attribute"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*r = RatingSelector{Selector: obj.Selector, PercentAttr: obj.PercentAttr}
	return nil
}

// SelectorMap holds the CSS selectors discovered once per platform per run.
// Empty selectors are legal: extraction degrades to field defaults.
type SelectorMap struct {
	Title           string         `json:"title_selector"`
	Price           string         `json:"price_selector"`
	Currency        string         `json:"currency_selector"`
	Rating          RatingSelector `json:"rating_selector"`
	ReviewsCount    string         `json:"reviews_count_selector"`
	Availability    string         `json:"availability_selector"`
	Characteristics string         `json:"characteristics_selector"`
}

// DiscoveredLink is one search-result hit on a platform: an absolute product
// URL and its 1-based position in the result grid.
type DiscoveredLink struct {
	Link           string `json:"link"`
	SearchPosition int    `json:"search_position"`
}

// PlatformListings tags the links discovered for one platform within a run.
type PlatformListings struct {
	PlatformID int64
	Links      []DiscoveredLink
}
