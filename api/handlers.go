package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"rankwatch/models"
	"rankwatch/scraper"
	"rankwatch/services"
)

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// =============================================================================
// Platforms
// =============================================================================

func validatePlatform(p *models.Platform) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.Contains(p.SearchURLTemplate, models.SearchPlaceholder) {
		return fmt.Errorf("search_url_template must contain %s", models.SearchPlaceholder)
	}
	return nil
}

func (s *Server) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.store.GetPlatforms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if platforms == nil {
		platforms = []models.Platform{}
	}
	writeJSON(w, http.StatusOK, platforms)
}

func (s *Server) handleCreatePlatform(w http.ResponseWriter, r *http.Request) {
	var p models.Platform
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validatePlatform(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.store.GetPlatformByName(r.Context(), p.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("platform %q already exists", p.Name))
		return
	}

	if err := s.store.CreatePlatform(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPlatform(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPlatformByID(r.Context(), pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "platform not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePlatform(w http.ResponseWriter, r *http.Request) {
	var p models.Platform
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p.ID = pathID(r)
	if err := validatePlatform(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.store.GetPlatformByName(r.Context(), p.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil && existing.ID != p.ID {
		writeError(w, http.StatusConflict, fmt.Sprintf("platform %q already exists", p.Name))
		return
	}

	if err := s.store.UpdatePlatform(r.Context(), &p); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "platform not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePlatform(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePlatform(r.Context(), pathID(r)); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "platform not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Products
// =============================================================================

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.GetProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(p.GlobalQueryName) == "" {
		writeError(w, http.StatusBadRequest, "global_query_name is required")
		return
	}

	if err := s.store.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProductByID(r.Context(), pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p.ID = pathID(r)
	if strings.TrimSpace(p.GlobalQueryName) == "" {
		writeError(w, http.StatusBadRequest, "global_query_name is required")
		return
	}

	if err := s.store.UpdateProduct(r.Context(), &p); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(r.Context(), pathID(r)); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Scraped data
// =============================================================================

func (s *Server) handleListScraped(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetScrapedProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.ScrapedProduct{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetScraped(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetScrapedProductByID(r.Context(), pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteScraped(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScrapedProduct(r.Context(), pathID(r)); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Regression models
// =============================================================================

func (s *Server) handleListRegressionModels(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.GetRegressionModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.RegressionModel{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetRegressionModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetRegressionModelByID(r.Context(), pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "model not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteRegressionModel(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRegressionModel(r.Context(), pathID(r)); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type trainRequest struct {
	PlatformID int64 `json:"platform_id"`
	ProductID  int64 `json:"product_id"`
}

// handleTrainRegression trains one (platform, product) pair when both ids are
// given, or runs a full retraining pass otherwise.
func (s *Server) handleTrainRegression(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if req.PlatformID != 0 && req.ProductID != 0 {
		m, err := s.regression.Train(r.Context(), req.PlatformID, req.ProductID)
		if err != nil {
			if err == services.ErrInsufficientData {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, m)
		return
	}

	trained, err := s.regression.TrainAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"models_trained": trained})
}

// =============================================================================
// Scrape trigger
// =============================================================================

type scrapeRequest struct {
	ProductID   int64   `json:"product_id"`
	PlatformIDs []int64 `json:"platform_ids"`
}

// handleScrape runs the pipeline synchronously and maps failure kinds to
// HTTP statuses: unknown product and empty results are 404, model failures
// are 502, everything else is 400.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	saved, err := s.scraper.Scrape(r.Context(), req.ProductID, req.PlatformIDs)
	if err != nil {
		switch scraper.ErrorKind(err) {
		case scraper.KindProductNotFound, scraper.KindNoProductsFound:
			writeError(w, http.StatusNotFound, err.Error())
		case scraper.KindModelInvocation:
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// =============================================================================
// Run history
// =============================================================================

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.ops.GetRecentRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []models.ScrapeRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRunLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.ops.GetRunLogs(pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []models.ScrapeLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
