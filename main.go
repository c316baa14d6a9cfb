package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"rankwatch/api"
	"rankwatch/config"
	"rankwatch/httputil"
	"rankwatch/llm"
	"rankwatch/logging"
	"rankwatch/models"
	"rankwatch/scheduler"
	"rankwatch/scraper"
	"rankwatch/services"
	"rankwatch/storage"
	"rankwatch/workers"
)

var (
	scrapeNow   = flag.Bool("scrape", false, "Run one scrape and exit")
	productID   = flag.Int64("product", 0, "Product id for -scrape")
	platformIDs = flag.String("platforms", "", "Comma-separated platform ids for -scrape (empty = all)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("rankwatch.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting rankwatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	clients := httputil.NewClients(&cfg.Proxy)

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	if err := pgStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	seedPlatforms(ctx, pgStore, cfg.Platforms)

	opsStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer opsStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	model, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, clients.API)
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}

	settle := time.Duration(cfg.Scraper.SettleMS) * time.Millisecond
	sessions := func() (scraper.PageNavigator, error) {
		return scraper.NewBrowserSessionWithSettle(settle)
	}

	orchestrator := scraper.NewOrchestrator(pgStore, pgStore, pgStore, model, sessions)
	orchestrator.SetOpsStore(opsStore)

	if cfg.Archive.Bucket != "" {
		archive, err := storage.NewMarkupArchive(ctx, storage.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		})
		if err != nil {
			log.Printf("Warning: markup archive disabled: %v", err)
		} else {
			orchestrator.SetArchiver(archive)
			log.Printf("Markup archive: s3://%s", cfg.Archive.Bucket)
		}
	}

	regressionService := services.NewRegressionService(pgStore)

	if *scrapeNow {
		if *productID == 0 {
			log.Fatal("-scrape requires -product")
		}
		log.Printf("Running scrape for product %d...", *productID)
		saved, err := orchestrator.Scrape(ctx, *productID, parsePlatformIDs(*platformIDs))
		if err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Printf("Scrape complete: %d records saved", len(saved))
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	regressionWorker := workers.NewRegressionWorker(regressionService)
	go regressionWorker.Run(ctx, 6*time.Hour)
	log.Println("Regression worker started")

	sched := scheduler.New(cfg, orchestrator, pgStore)
	sched.SetRegressionWorker(regressionWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	server := api.NewServer(pgStore, opsStore, orchestrator, regressionService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("Goodbye!")
}

// seedPlatforms upserts yaml-defined platforms so fresh deployments start
// with a usable platform set.
func seedPlatforms(ctx context.Context, store *storage.PostgresStore, seeds []config.PlatformSeed) {
	for _, seed := range seeds {
		platform := &models.Platform{
			Name:              seed.Name,
			BaseURL:           seed.BaseURL,
			SearchURLTemplate: seed.SearchURLTemplate,
		}
		if !strings.Contains(platform.SearchURLTemplate, models.SearchPlaceholder) {
			log.Printf("Warning: skipping platform %q: template missing %s", seed.Name, models.SearchPlaceholder)
			continue
		}
		if err := store.UpsertPlatform(ctx, platform); err != nil {
			log.Printf("Warning: failed to seed platform %q: %v", seed.Name, err)
			continue
		}
		log.Printf("Seeded platform %s (id %d)", platform.Name, platform.ID)
	}
}

func parsePlatformIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Fatalf("Invalid platform id %q", part)
		}
		ids = append(ids, id)
	}
	return ids
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := strings.Index(connStr, "://")
	if start == -1 {
		return connStr
	}
	rest := connStr[start+3:]
	at := strings.Index(rest, "@")
	colon := strings.Index(rest, ":")
	if colon > -1 && at > colon {
		return connStr[:start+3+colon+1] + "****" + rest[at:]
	}
	return connStr
}
