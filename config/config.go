package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	DBPath      string
	HTTPAddr    string
	LogPath     string

	Gemini    GeminiConfig
	Scheduler SchedulerConfig
	Scraper   ScraperConfig
	Proxy     ProxyConfig
	Archive   ArchiveConfig

	Platforms []PlatformSeed
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	SettleMS int
}

type ProxyConfig struct {
	URL string
}

// ArchiveConfig configures the optional S3-compatible markup archive. Empty
// bucket disables archiving.
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// PlatformSeed is one platform definition read from config/platforms/*.yaml
// and upserted into the database at startup.
type PlatformSeed struct {
	Name              string `yaml:"name"`
	BaseURL           string `yaml:"base_url"`
	SearchURLTemplate string `yaml:"search_url_template"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "rankwatch.db"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogPath:     getEnv("LOG_PATH", "rankwatch.log"),
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			SettleMS: getEnvInt("SCRAPE_SETTLE_MS", 10000),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Archive: ArchiveConfig{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadPlatformSeeds(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadPlatformSeeds() error {
	configDir := "config/platforms"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var seed PlatformSeed
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if seed.Name == "" {
			return fmt.Errorf("%s: platform name is required", path)
		}

		c.Platforms = append(c.Platforms, seed)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
