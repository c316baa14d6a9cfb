package scraper

import (
	"encoding/json"
	"strings"

	"rankwatch/models"
)

// ParseListings decodes a listing-discovery response. The contract is a JSON
// object with a "products" array of {link, search_position}. Entries without
// an absolute link or a positive position are dropped; a document without the
// products key at all fails with ErrBadSchema.
func ParseListings(response string) ([]models.DiscoveredLink, error) {
	var doc struct {
		Products []models.DiscoveredLink `json:"products"`
	}
	if err := NormalizeJSON(response, &doc); err != nil {
		return nil, err
	}
	if doc.Products == nil {
		return nil, ErrBadSchema{Detail: `missing "products" array`}
	}

	links := make([]models.DiscoveredLink, 0, len(doc.Products))
	for _, l := range doc.Products {
		if !strings.HasPrefix(l.Link, "http") || l.SearchPosition < 1 {
			continue
		}
		links = append(links, l)
	}
	return links, nil
}

// ParseSelectorMap decodes a selector-discovery response. The document must
// be a JSON object; keys the model omitted decode to empty selectors, which
// the extractor later resolves to field defaults.
func ParseSelectorMap(response string) (models.SelectorMap, error) {
	var raw json.RawMessage
	if err := NormalizeJSON(response, &raw); err != nil {
		return models.SelectorMap{}, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return models.SelectorMap{}, ErrBadSchema{Detail: "selector map is not a JSON object"}
	}

	var selectors models.SelectorMap
	if err := json.Unmarshal(raw, &selectors); err != nil {
		return models.SelectorMap{}, ErrBadSchema{Detail: err.Error()}
	}
	return selectors, nil
}
