package workers

import (
	"context"
	"log"
	"time"

	"rankwatch/services"
)

// RegressionWorker periodically retrains position models over every
// (platform, product) pair with scraped data.
type RegressionWorker struct {
	regression *services.RegressionService
	trigger    chan struct{}
}

func NewRegressionWorker(regression *services.RegressionService) *RegressionWorker {
	return &RegressionWorker{
		regression: regression,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an immediate retraining pass. Non-blocking; a pass already
// pending absorbs the request.
func (w *RegressionWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the retraining loop. It blocks until ctx is cancelled.
func (w *RegressionWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Regression worker stopping")
			return
		case <-ticker.C:
			w.retrain(ctx)
		case <-w.trigger:
			w.retrain(ctx)
		}
	}
}

func (w *RegressionWorker) retrain(ctx context.Context) {
	trained, err := w.regression.TrainAll(ctx)
	if err != nil {
		log.Printf("Regression: retraining pass failed: %v", err)
		return
	}
	if trained > 0 {
		log.Printf("Regression: retrained %d models", trained)
	}
}
