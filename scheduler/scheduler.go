package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"rankwatch/config"
	"rankwatch/scraper"
	"rankwatch/storage"
)

// Triggerable allows workers to be triggered alongside a scheduled pass.
type Triggerable interface {
	Trigger()
}

// Scheduler runs full scrape fan-outs on a cron expression or fixed interval:
// every tracked product across every platform.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	store        *storage.PostgresStore
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}

	regressionWorker Triggerable
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, store *storage.PostgresStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        store,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetRegressionWorker registers the retraining worker, triggered after each
// scheduled pass so models reflect fresh data.
func (s *Scheduler) SetRegressionWorker(w Triggerable) {
	s.regressionWorker = w
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runAll(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runAll(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to API requests")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// TriggerNow runs one full pass immediately.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runAll(ctx)
}

// runAll scrapes every product across all platforms, sequentially. A failed
// product does not stop the pass.
func (s *Scheduler) runAll(ctx context.Context) {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		log.Printf("Scheduled run: failed to list products: %v", err)
		return
	}
	if len(products) == 0 {
		log.Println("Scheduled run: no products to scrape")
		return
	}

	log.Printf("Scheduled run: scraping %d products", len(products))
	for _, product := range products {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.orchestrator.Scrape(ctx, product.ID, nil); err != nil {
			log.Printf("Scheduled run: product %d failed: %v", product.ID, err)
		}
	}

	if s.regressionWorker != nil {
		s.regressionWorker.Trigger()
	}
}
