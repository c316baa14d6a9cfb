package scraper

import (
	"errors"
	"fmt"
)

// ErrProductNotFound indicates the target product id does not exist. Fatal
// before anything is attempted.
type ErrProductNotFound struct {
	ProductID int64
}

func (e ErrProductNotFound) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ProductID)
}

// ErrNoProductsFound indicates no platform yielded a single listing link.
// Nothing is persisted.
type ErrNoProductsFound struct{}

func (e ErrNoProductsFound) Error() string {
	return "no products found on any platform"
}

// ErrPageLoad indicates navigation or load-state waiting failed.
type ErrPageLoad struct {
	URL string
	Err error
}

func (e ErrPageLoad) Error() string {
	return fmt.Sprintf("page load failed for %s: %v", e.URL, e.Err)
}

func (e ErrPageLoad) Unwrap() error {
	return e.Err
}

// ErrEmptyAnalysis indicates the model returned an empty response for a page.
type ErrEmptyAnalysis struct {
	URL string
}

func (e ErrEmptyAnalysis) Error() string {
	return fmt.Sprintf("empty analysis for %s", e.URL)
}

// ErrModelInvocation indicates the model call itself failed (quota, network).
type ErrModelInvocation struct {
	Err error
}

func (e ErrModelInvocation) Error() string {
	return fmt.Errorf("model invocation: %w", e.Err).Error()
}

func (e ErrModelInvocation) Unwrap() error {
	return e.Err
}

// ErrInvalidJSON indicates the model's response could not be parsed after
// normalization. The parse diagnostic is preserved.
type ErrInvalidJSON struct {
	Err error
}

func (e ErrInvalidJSON) Error() string {
	return fmt.Errorf("parsing model JSON: %w", e.Err).Error()
}

func (e ErrInvalidJSON) Unwrap() error {
	return e.Err
}

// ErrBadSchema indicates well-formed JSON whose shape does not match the
// expected response contract.
type ErrBadSchema struct {
	Detail string
}

func (e ErrBadSchema) Error() string {
	return "unexpected response shape: " + e.Detail
}

// ErrScrapeFailed wraps any other cause that aborted a run.
type ErrScrapeFailed struct {
	Err error
}

func (e ErrScrapeFailed) Error() string {
	return fmt.Errorf("scrape failed: %w", e.Err).Error()
}

func (e ErrScrapeFailed) Unwrap() error {
	return e.Err
}

// Error kinds, for logging and HTTP status mapping.
const (
	KindNone            = "none"
	KindProductNotFound = "product_not_found"
	KindNoProductsFound = "no_products_found"
	KindPageLoad        = "page_load"
	KindEmptyAnalysis   = "empty_analysis"
	KindModelInvocation = "model_invocation"
	KindInvalidJSON     = "invalid_json"
	KindBadSchema       = "bad_schema"
	KindOther           = "other"
)

// ErrorKind classifies a scrape error into one of the Kind constants.
func ErrorKind(err error) string {
	if err == nil {
		return KindNone
	}
	var notFound ErrProductNotFound
	if errors.As(err, &notFound) {
		return KindProductNotFound
	}
	var empty ErrNoProductsFound
	if errors.As(err, &empty) {
		return KindNoProductsFound
	}
	var pageLoad ErrPageLoad
	if errors.As(err, &pageLoad) {
		return KindPageLoad
	}
	var emptyAnalysis ErrEmptyAnalysis
	if errors.As(err, &emptyAnalysis) {
		return KindEmptyAnalysis
	}
	var model ErrModelInvocation
	if errors.As(err, &model) {
		return KindModelInvocation
	}
	var badJSON ErrInvalidJSON
	if errors.As(err, &badJSON) {
		return KindInvalidJSON
	}
	var badSchema ErrBadSchema
	if errors.As(err, &badSchema) {
		return KindBadSchema
	}
	return KindOther
}
