package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"rankwatch/models"
	"rankwatch/storage"
)

// ErrInsufficientData is returned when a (platform, product) pair has fewer
// snapshots than the fit has parameters.
var ErrInsufficientData = errors.New("insufficient scraped data for regression")

// Feature and target names are stored with the model so consumers can apply
// coefficients without guessing column order.
var regressionFeatures = []string{"price", "rating", "reviews_count"}

const regressionTarget = "search_position"

// RegressionService fits ordinary-least-squares models relating a listing's
// price, rating and review count to its search position on one platform.
type RegressionService struct {
	store *storage.PostgresStore
}

func NewRegressionService(store *storage.PostgresStore) *RegressionService {
	return &RegressionService{store: store}
}

// Train fits a model on the snapshot series of one (platform, product) pair
// and persists the result. The fit uses every snapshot, oldest first.
func (s *RegressionService) Train(ctx context.Context, platformID, productID int64) (*models.RegressionModel, error) {
	records, err := s.store.GetScrapedByPlatformAndProduct(ctx, platformID, productID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	// QR least squares needs at least as many rows as parameters.
	if len(records) < len(regressionFeatures)+1 {
		return nil, ErrInsufficientData
	}

	model, err := fitOLS(records)
	if err != nil {
		return nil, err
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	name := fmt.Sprintf("position-model-p%d-pr%d", platformID, productID)
	if product != nil {
		name = fmt.Sprintf("position-model-%s-platform-%d", product.GlobalQueryName, platformID)
	}

	model.Name = name
	model.PlatformID = &platformID
	if err := s.store.CreateRegressionModel(ctx, model); err != nil {
		return nil, fmt.Errorf("store model: %w", err)
	}

	log.Printf("Trained %s on %d snapshots (R²=%.4f)", model.Name, len(records), model.RSquared)
	return model, nil
}

// TrainAll retrains every (platform, product) pair that has scraped data.
// Pairs that fail are logged and skipped; the pass continues.
func (s *RegressionService) TrainAll(ctx context.Context) (int, error) {
	pairs, err := s.store.GetScrapedPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pairs: %w", err)
	}

	trained := 0
	for _, pair := range pairs {
		if _, err := s.Train(ctx, pair[0], pair[1]); err != nil {
			log.Printf("Warning: regression for platform %d product %d failed: %v", pair[0], pair[1], err)
			continue
		}
		trained++
	}
	return trained, nil
}

// fitOLS solves y = Xb for b over [1, price, rating, reviews_count] columns
// via QR decomposition, then computes R² against the fitted values.
func fitOLS(records []models.ScrapedProduct) (*models.RegressionModel, error) {
	n := len(records)
	cols := len(regressionFeatures) + 1

	x := mat.NewDense(n, cols, nil)
	y := mat.NewVecDense(n, nil)
	for i, r := range records {
		x.Set(i, 0, 1)
		x.Set(i, 1, r.Price)
		x.Set(i, 2, r.Rating)
		x.Set(i, 3, float64(r.ReviewsCount))
		y.SetVec(i, float64(r.SearchPosition))
	}

	var qr mat.QR
	qr.Factorize(x)

	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, y); err != nil {
		return nil, fmt.Errorf("solve least squares: %w", err)
	}

	fitted := make([]float64, n)
	observed := make([]float64, n)
	var fittedVec mat.VecDense
	fittedVec.MulVec(x, &b)
	for i := 0; i < n; i++ {
		fitted[i] = fittedVec.AtVec(i)
		observed[i] = y.AtVec(i)
	}

	coefficients := make(map[string]float64, len(regressionFeatures))
	for i, feature := range regressionFeatures {
		coefficients[feature] = b.AtVec(i + 1)
	}

	return &models.RegressionModel{
		TargetVariable:   regressionTarget,
		FeatureVariables: append([]string(nil), regressionFeatures...),
		Coefficients:     coefficients,
		Intercept:        b.AtVec(0),
		RSquared:         rSquared(observed, fitted),
	}, nil
}

// rSquared is 1 - SSres/SStot. A constant observed series (zero variance)
// yields 1 when fitted exactly, else 0.
func rSquared(observed, fitted []float64) float64 {
	mean := stat.Mean(observed, nil)

	var ssRes, ssTot float64
	for i := range observed {
		res := observed[i] - fitted[i]
		ssRes += res * res
		dev := observed[i] - mean
		ssTot += dev * dev
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
