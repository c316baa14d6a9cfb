package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rankwatch/models"
)

// Defaults applied when a selector matches nothing on the page.
const (
	DefaultCurrency     = "UAH"
	DefaultAvailability = "Unknown"
)

var (
	digitRunRe  = regexp.MustCompile(`\d+`)
	numberRe    = regexp.MustCompile(`\d+(\.\d+)?`)
	percentRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	nonAmountRe = regexp.MustCompile(`[^\d.,]`)

	spaceStripper = strings.NewReplacer(" ", "", "\u00a0", "")
)

// ExtractProduct builds one snapshot row from rendered page markup and a
// selector map. Missing elements never fail extraction; every field degrades
// to its documented default.
func ExtractProduct(markup, url string, selectors models.SelectorMap, productID, platformID int64, position int) (models.ScrapedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.ScrapedProduct{}, err
	}

	return models.ScrapedProduct{
		ProductID:          productID,
		PlatformID:         platformID,
		URLOnPlatform:      url,
		NameOnPlatform:     textOf(doc, selectors.Title),
		Price:              decimalOf(doc, selectors.Price),
		Currency:           textOr(doc, selectors.Currency, DefaultCurrency),
		Rating:             ratingOf(doc, selectors.Rating),
		ReviewsCount:       intOf(doc, selectors.ReviewsCount),
		AvailabilityStatus: textOr(doc, selectors.Availability, DefaultAvailability),
		SearchPosition:     position,
	}, nil
}

// textOf returns the trimmed text of the first match, or "".
func textOf(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

func textOr(doc *goquery.Document, selector, fallback string) string {
	if text := textOf(doc, selector); text != "" {
		return text
	}
	return fallback
}

// intOf extracts the first run of decimal digits after dropping regular and
// non-breaking spaces. Default 0.
func intOf(doc *goquery.Document, selector string) int {
	text := textOf(doc, selector)
	if text == "" {
		return 0
	}
	match := digitRunRe.FindString(spaceStripper.Replace(text))
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// decimalOf concatenates the element's nested text, strips everything except
// digits and separators, normalizes the decimal comma, and takes the first
// numeric run. Default 0.00.
func decimalOf(doc *goquery.Document, selector string) float64 {
	if selector == "" {
		return 0
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0
	}

	cleaned := nonAmountRe.ReplaceAllString(sel.Text(), "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	match := numberRe.FindString(cleaned)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

// ratingOf handles both selector shapes. Plain: parse the first numeric run
// of the element's text. Percent: read the named attribute and scale
// "<number>%" to 0-5, rounded to two decimals. Default 0.0.
func ratingOf(doc *goquery.Document, rs models.RatingSelector) float64 {
	if rs.Selector == "" {
		return 0
	}
	sel := doc.Find(rs.Selector).First()
	if sel.Length() == 0 {
		return 0
	}

	if rs.IsPercent() {
		attr, ok := sel.Attr(rs.PercentAttr)
		if !ok {
			return 0
		}
		match := percentRe.FindStringSubmatch(attr)
		if match == nil {
			return 0
		}
		percent, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0
		}
		return math.Round(percent/100*5*100) / 100
	}

	text := strings.ReplaceAll(strings.TrimSpace(sel.Text()), ",", ".")
	match := numberRe.FindString(text)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}
