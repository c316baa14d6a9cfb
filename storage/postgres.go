package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rankwatch/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the domain tables when absent. Schema evolution is
// out of scope; existing tables are left untouched.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS platforms (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		base_url VARCHAR(255) NOT NULL,
		search_url_template VARCHAR(512) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		global_query_name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_products_query ON products (global_query_name);

	CREATE TABLE IF NOT EXISTS scraped_product_data (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		platform_id BIGINT NOT NULL REFERENCES platforms(id) ON DELETE CASCADE,
		url_on_platform VARCHAR(1024) NOT NULL,
		name_on_platform VARCHAR(512) NOT NULL,
		price NUMERIC(10,2) NOT NULL,
		currency VARCHAR(10) NOT NULL,
		rating DOUBLE PRECISION NOT NULL,
		reviews_count INTEGER NOT NULL,
		availability_status VARCHAR(100) NOT NULL,
		search_position INTEGER NOT NULL,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_scraped_product ON scraped_product_data (product_id);
	CREATE INDEX IF NOT EXISTS idx_scraped_platform ON scraped_product_data (platform_id);

	CREATE TABLE IF NOT EXISTS regression_models (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		target_variable VARCHAR(100) NOT NULL,
		feature_variables JSONB NOT NULL,
		coefficients JSONB NOT NULL,
		intercept DOUBLE PRECISION NOT NULL,
		r_squared DOUBLE PRECISION NOT NULL,
		platform_id BIGINT REFERENCES platforms(id) ON DELETE CASCADE,
		last_trained_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_regression_platform ON regression_models (platform_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Platforms
// =============================================================================

func (s *PostgresStore) GetPlatforms(ctx context.Context) ([]models.Platform, error) {
	query := `SELECT id, name, base_url, search_url_template FROM platforms ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var platforms []models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseURL, &p.SearchURLTemplate); err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

func (s *PostgresStore) GetPlatformByID(ctx context.Context, id int64) (*models.Platform, error) {
	query := `SELECT id, name, base_url, search_url_template FROM platforms WHERE id = $1`

	var p models.Platform
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.BaseURL, &p.SearchURLTemplate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPlatformByName(ctx context.Context, name string) (*models.Platform, error) {
	query := `SELECT id, name, base_url, search_url_template FROM platforms WHERE name = $1`

	var p models.Platform
	err := s.pool.QueryRow(ctx, query, name).Scan(&p.ID, &p.Name, &p.BaseURL, &p.SearchURLTemplate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlatformsByIDs returns matching platforms ordered by id, so a run's
// platform order is deterministic.
func (s *PostgresStore) GetPlatformsByIDs(ctx context.Context, ids []int64) ([]models.Platform, error) {
	query := `SELECT id, name, base_url, search_url_template FROM platforms WHERE id = ANY($1) ORDER BY id`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var platforms []models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseURL, &p.SearchURLTemplate); err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

func (s *PostgresStore) GetAllPlatformIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM platforms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) CreatePlatform(ctx context.Context, p *models.Platform) error {
	query := `
		INSERT INTO platforms (name, base_url, search_url_template)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, p.Name, p.BaseURL, p.SearchURLTemplate).Scan(&p.ID)
}

func (s *PostgresStore) UpdatePlatform(ctx context.Context, p *models.Platform) error {
	query := `
		UPDATE platforms SET name = $2, base_url = $3, search_url_template = $4
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.Name, p.BaseURL, p.SearchURLTemplate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeletePlatform(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM platforms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpsertPlatform inserts or refreshes a platform by its unique name. Used by
// the yaml seed loader at startup.
func (s *PostgresStore) UpsertPlatform(ctx context.Context, p *models.Platform) error {
	query := `
		INSERT INTO platforms (name, base_url, search_url_template)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			base_url = EXCLUDED.base_url,
			search_url_template = EXCLUDED.search_url_template
		RETURNING id`

	return s.pool.QueryRow(ctx, query, p.Name, p.BaseURL, p.SearchURLTemplate).Scan(&p.ID)
}

// =============================================================================
// Products
// =============================================================================

func (s *PostgresStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, global_query_name, description FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.GlobalQueryName, &p.Description); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT id, global_query_name, description FROM products WHERE id = $1`

	var p models.Product
	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.GlobalQueryName, &p.Description)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (global_query_name, description)
		VALUES ($1, $2)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, p.GlobalQueryName, p.Description).Scan(&p.ID)
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `UPDATE products SET global_query_name = $2, description = $3 WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, p.ID, p.GlobalQueryName, p.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// =============================================================================
// Scraped product data
// =============================================================================

const scrapedColumns = `id, product_id, platform_id, url_on_platform, name_on_platform,
		price, currency, rating, reviews_count, availability_status, search_position, scraped_at`

func scanScraped(row pgx.Row, r *models.ScrapedProduct) error {
	return row.Scan(
		&r.ID, &r.ProductID, &r.PlatformID, &r.URLOnPlatform, &r.NameOnPlatform,
		&r.Price, &r.Currency, &r.Rating, &r.ReviewsCount, &r.AvailabilityStatus,
		&r.SearchPosition, &r.ScrapedAt,
	)
}

func (s *PostgresStore) GetScrapedProducts(ctx context.Context) ([]models.ScrapedProduct, error) {
	query := `SELECT ` + scrapedColumns + ` FROM scraped_product_data ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ScrapedProduct
	for rows.Next() {
		var r models.ScrapedProduct
		if err := scanScraped(rows, &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) GetScrapedProductByID(ctx context.Context, id int64) (*models.ScrapedProduct, error) {
	query := `SELECT ` + scrapedColumns + ` FROM scraped_product_data WHERE id = $1`

	var r models.ScrapedProduct
	err := scanScraped(s.pool.QueryRow(ctx, query, id), &r)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetScrapedByPlatformAndProduct returns the snapshot series used to fit a
// regression model, oldest first.
func (s *PostgresStore) GetScrapedByPlatformAndProduct(ctx context.Context, platformID, productID int64) ([]models.ScrapedProduct, error) {
	query := `SELECT ` + scrapedColumns + `
		FROM scraped_product_data
		WHERE platform_id = $1 AND product_id = $2
		ORDER BY scraped_at`

	rows, err := s.pool.Query(ctx, query, platformID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ScrapedProduct
	for rows.Next() {
		var r models.ScrapedProduct
		if err := scanScraped(rows, &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetScrapedPairs lists the distinct (platform, product) pairs that have
// scraped data, for the retraining worker.
func (s *PostgresStore) GetScrapedPairs(ctx context.Context) ([][2]int64, error) {
	query := `SELECT DISTINCT platform_id, product_id FROM scraped_product_data ORDER BY platform_id, product_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs [][2]int64
	for rows.Next() {
		var platformID, productID int64
		if err := rows.Scan(&platformID, &productID); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]int64{platformID, productID})
	}
	return pairs, rows.Err()
}

// BulkInsertScrapedProducts persists one run's records in a single
// transaction, preserving input order. A row violating the numeric domain
// bounds fails the whole batch. Returned rows carry assigned ids and the
// server-side timestamp.
func (s *PostgresStore) BulkInsertScrapedProducts(ctx context.Context, records []models.ScrapedProduct) ([]models.ScrapedProduct, error) {
	for i := range records {
		if err := records[i].ValidateBounds(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO scraped_product_data (
			product_id, platform_id, url_on_platform, name_on_platform,
			price, currency, rating, reviews_count, availability_status, search_position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, scraped_at`

	saved := make([]models.ScrapedProduct, 0, len(records))
	for _, r := range records {
		err := tx.QueryRow(ctx, query,
			r.ProductID, r.PlatformID, r.URLOnPlatform, r.NameOnPlatform,
			r.Price, r.Currency, r.Rating, r.ReviewsCount, r.AvailabilityStatus, r.SearchPosition,
		).Scan(&r.ID, &r.ScrapedAt)
		if err != nil {
			return nil, err
		}
		saved = append(saved, r)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *PostgresStore) DeleteScrapedProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scraped_product_data WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// =============================================================================
// Regression models
// =============================================================================

func (s *PostgresStore) GetRegressionModels(ctx context.Context) ([]models.RegressionModel, error) {
	query := `
		SELECT id, name, target_variable, feature_variables, coefficients,
			intercept, r_squared, platform_id, last_trained_at
		FROM regression_models ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.RegressionModel
	for rows.Next() {
		m, err := scanRegression(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *m)
	}
	return results, rows.Err()
}

func (s *PostgresStore) GetRegressionModelByID(ctx context.Context, id int64) (*models.RegressionModel, error) {
	query := `
		SELECT id, name, target_variable, feature_variables, coefficients,
			intercept, r_squared, platform_id, last_trained_at
		FROM regression_models WHERE id = $1`

	m, err := scanRegression(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) CreateRegressionModel(ctx context.Context, m *models.RegressionModel) error {
	features, err := json.Marshal(m.FeatureVariables)
	if err != nil {
		return err
	}
	coefficients, err := json.Marshal(m.Coefficients)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO regression_models (
			name, target_variable, feature_variables, coefficients,
			intercept, r_squared, platform_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_trained_at`

	return s.pool.QueryRow(ctx, query,
		m.Name, m.TargetVariable, features, coefficients,
		m.Intercept, m.RSquared, m.PlatformID,
	).Scan(&m.ID, &m.LastTrainedAt)
}

func (s *PostgresStore) DeleteRegressionModel(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM regression_models WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanRegression(row pgx.Row) (*models.RegressionModel, error) {
	var m models.RegressionModel
	var features, coefficients []byte
	err := row.Scan(
		&m.ID, &m.Name, &m.TargetVariable, &features, &coefficients,
		&m.Intercept, &m.RSquared, &m.PlatformID, &m.LastTrainedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &m.FeatureVariables); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(coefficients, &m.Coefficients); err != nil {
		return nil, err
	}
	return &m, nil
}
