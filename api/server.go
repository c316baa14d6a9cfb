package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rankwatch/models"
	"rankwatch/services"
	"rankwatch/storage"
)

// Scraper runs one scrape pipeline invocation. Satisfied by
// scraper.Orchestrator.
type Scraper interface {
	Scrape(ctx context.Context, productID int64, platformIDs []int64) ([]models.ScrapedProduct, error)
}

// Server exposes the CRUD surface and the scrape/train triggers over HTTP.
type Server struct {
	store      *storage.PostgresStore
	ops        *storage.SQLiteStore
	scraper    Scraper
	regression *services.RegressionService
}

// NewServer wires the HTTP layer. ops may be nil, disabling the run-history
// endpoints.
func NewServer(store *storage.PostgresStore, ops *storage.SQLiteStore, scraper Scraper, regression *services.RegressionService) *Server {
	return &Server{
		store:      store,
		ops:        ops,
		scraper:    scraper,
		regression: regression,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/platforms", s.handleListPlatforms).Methods("GET")
	r.HandleFunc("/api/platforms", s.handleCreatePlatform).Methods("POST")
	r.HandleFunc("/api/platforms/{id:[0-9]+}", s.handleGetPlatform).Methods("GET")
	r.HandleFunc("/api/platforms/{id:[0-9]+}", s.handleUpdatePlatform).Methods("PUT")
	r.HandleFunc("/api/platforms/{id:[0-9]+}", s.handleDeletePlatform).Methods("DELETE")

	r.HandleFunc("/api/products", s.handleListProducts).Methods("GET")
	r.HandleFunc("/api/products", s.handleCreateProduct).Methods("POST")
	r.HandleFunc("/api/products/{id:[0-9]+}", s.handleGetProduct).Methods("GET")
	r.HandleFunc("/api/products/{id:[0-9]+}", s.handleUpdateProduct).Methods("PUT")
	r.HandleFunc("/api/products/{id:[0-9]+}", s.handleDeleteProduct).Methods("DELETE")

	r.HandleFunc("/api/scraped-data", s.handleListScraped).Methods("GET")
	r.HandleFunc("/api/scraped-data/{id:[0-9]+}", s.handleGetScraped).Methods("GET")
	r.HandleFunc("/api/scraped-data/{id:[0-9]+}", s.handleDeleteScraped).Methods("DELETE")

	r.HandleFunc("/api/regression-models", s.handleListRegressionModels).Methods("GET")
	r.HandleFunc("/api/regression-models/train", s.handleTrainRegression).Methods("POST")
	r.HandleFunc("/api/regression-models/{id:[0-9]+}", s.handleGetRegressionModel).Methods("GET")
	r.HandleFunc("/api/regression-models/{id:[0-9]+}", s.handleDeleteRegressionModel).Methods("DELETE")

	r.HandleFunc("/api/scrape", s.handleScrape).Methods("POST")

	if s.ops != nil {
		r.HandleFunc("/api/runs", s.handleListRuns).Methods("GET")
		r.HandleFunc("/api/runs/{id:[0-9]+}/logs", s.handleGetRunLogs).Methods("GET")
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
