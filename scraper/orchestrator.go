package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rankwatch/llm"
	"rankwatch/models"
)

// PlatformStore resolves scrape targets. Implementations return platforms in
// a stable order so record ordering stays deterministic across runs.
type PlatformStore interface {
	GetAllPlatformIDs(ctx context.Context) ([]int64, error)
	GetPlatformsByIDs(ctx context.Context, ids []int64) ([]models.Platform, error)
}

// ProductStore resolves the tracked product. A missing id yields (nil, nil).
type ProductStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// RecordStore persists a completed run's snapshot rows in one call.
type RecordStore interface {
	BulkInsertScrapedProducts(ctx context.Context, rows []models.ScrapedProduct) ([]models.ScrapedProduct, error)
}

// OpsStore records run telemetry. Optional; a nil store disables it.
type OpsStore interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message string) error
}

// Orchestrator executes scrape runs: resolve platforms, discover listing
// links and a per-platform selector map through the page analyzer, extract a
// record per discovered link, then bulk-persist the collected set. A run is
// strictly sequential over one browser session and stateless with respect to
// prior runs.
type Orchestrator struct {
	platforms PlatformStore
	products  ProductStore
	records   RecordStore
	model     llm.Client
	sessions  SessionFactory

	ops     OpsStore
	archive MarkupArchiver
}

func NewOrchestrator(platforms PlatformStore, products ProductStore, records RecordStore, model llm.Client, sessions SessionFactory) *Orchestrator {
	return &Orchestrator{
		platforms: platforms,
		products:  products,
		records:   records,
		model:     model,
		sessions:  sessions,
	}
}

// SetOpsStore enables run telemetry in the local operational store.
func (o *Orchestrator) SetOpsStore(ops OpsStore) {
	o.ops = ops
}

// SetArchiver enables rendered-markup archiving for captured pages.
func (o *Orchestrator) SetArchiver(archive MarkupArchiver) {
	o.archive = archive
}

// Scrape runs the pipeline for one product across the given platforms. An
// empty platform set fans out to every known platform. On success it returns
// the persisted rows; on any failure the whole run is aborted and nothing is
// persisted.
func (o *Orchestrator) Scrape(ctx context.Context, productID int64, platformIDs []int64) ([]models.ScrapedProduct, error) {
	run := &models.ScrapeRun{
		CorrelationID: uuid.NewString(),
		ProductID:     productID,
		StartedAt:     time.Now(),
		Status:        models.RunStatusRunning,
	}
	if o.ops != nil {
		if id, err := o.ops.CreateRun(run); err != nil {
			log.Printf("Warning: failed to create run record: %v", err)
		} else {
			run.ID = id
		}
	}

	saved, err := o.scrape(ctx, run, productID, platformIDs)

	now := time.Now()
	run.FinishedAt = &now
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		o.log(run, models.LogLevelError, fmt.Sprintf("Run failed (%s): %v", ErrorKind(err), err))
	} else {
		run.Status = models.RunStatusCompleted
		run.RecordsSaved = len(saved)
		o.log(run, models.LogLevelInfo, fmt.Sprintf("Run completed: %d records persisted", len(saved)))
	}
	if o.ops != nil && run.ID != 0 {
		if err := o.ops.UpdateRun(run); err != nil {
			log.Printf("Warning: failed to update run record: %v", err)
		}
	}

	return saved, err
}

func (o *Orchestrator) scrape(ctx context.Context, run *models.ScrapeRun, productID int64, platformIDs []int64) ([]models.ScrapedProduct, error) {
	product, err := o.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, ErrScrapeFailed{Err: err}
	}
	if product == nil {
		return nil, ErrProductNotFound{ProductID: productID}
	}

	if len(platformIDs) == 0 {
		platformIDs, err = o.platforms.GetAllPlatformIDs(ctx)
		if err != nil {
			return nil, ErrScrapeFailed{Err: err}
		}
	}
	platforms, err := o.platforms.GetPlatformsByIDs(ctx, platformIDs)
	if err != nil {
		return nil, ErrScrapeFailed{Err: err}
	}
	run.Platforms = len(platforms)
	o.log(run, models.LogLevelInfo, fmt.Sprintf("Scraping %q across %d platforms", product.GlobalQueryName, len(platforms)))

	records, err := o.collect(ctx, run, product, platforms)
	if err != nil {
		return nil, err
	}

	// The session is already torn down; persistence happens exactly once.
	saved, err := o.records.BulkInsertScrapedProducts(ctx, records)
	if err != nil {
		return nil, ErrScrapeFailed{Err: err}
	}
	return saved, nil
}

// collect owns the browser session for the run: listing discovery, selector
// discovery, and per-link extraction all reuse its single page serially. The
// session is closed on every exit path before persistence is attempted.
func (o *Orchestrator) collect(ctx context.Context, run *models.ScrapeRun, product *models.Product, platforms []models.Platform) ([]models.ScrapedProduct, error) {
	session, err := o.sessions()
	if err != nil {
		return nil, ErrScrapeFailed{Err: err}
	}
	defer session.Close()

	analyzer := NewPageAnalyzer(session, o.model, o.archive, "runs/"+run.CorrelationID)

	discovered := make([]models.PlatformListings, 0, len(platforms))
	total := 0
	for _, platform := range platforms {
		searchURL := platform.SearchURL(product.GlobalQueryName)
		o.log(run, models.LogLevelInfo, fmt.Sprintf("Discovering listings on %s: %s", platform.Name, searchURL))

		response, err := analyzer.AnalyzePage(ctx, searchURL, listingDiscoveryPromptV1)
		if err != nil {
			return nil, err
		}
		links, err := ParseListings(response)
		if err != nil {
			return nil, err
		}

		o.log(run, models.LogLevelInfo, fmt.Sprintf("Platform %s: %d links", platform.Name, len(links)))
		discovered = append(discovered, models.PlatformListings{PlatformID: platform.ID, Links: links})
		total += len(links)
	}

	if total == 0 {
		return nil, ErrNoProductsFound{}
	}
	run.LinksFound = total

	var records []models.ScrapedProduct
	for i, listings := range discovered {
		if len(listings.Links) == 0 {
			continue
		}
		platform := platforms[i]

		// One selector map per platform per run, discovered from the first
		// result; listing pages on a platform share one DOM template.
		response, err := analyzer.AnalyzePage(ctx, listings.Links[0].Link, selectorDiscoveryPromptV1)
		if err != nil {
			return nil, err
		}
		selectors, err := ParseSelectorMap(response)
		if err != nil {
			return nil, err
		}

		for _, link := range listings.Links {
			markup, err := analyzer.CapturePage(ctx, link.Link)
			if err != nil {
				return nil, err
			}
			record, err := ExtractProduct(markup, link.Link, selectors, product.ID, platform.ID, link.SearchPosition)
			if err != nil {
				return nil, ErrScrapeFailed{Err: err}
			}
			records = append(records, record)
		}
		o.log(run, models.LogLevelInfo, fmt.Sprintf("Platform %s: extracted %d records", platform.Name, len(listings.Links)))
	}

	return records, nil
}

func (o *Orchestrator) log(run *models.ScrapeRun, level models.LogLevel, message string) {
	log.Printf("[%s] run %s: %s", level, run.CorrelationID, message)
	if o.ops != nil && run.ID != 0 {
		o.ops.Log(&run.ID, level, message)
	}
}
