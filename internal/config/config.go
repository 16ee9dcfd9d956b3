package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Outbound weather API access.
	MeteostatAPIKey string
	HTTPTimeout     time.Duration

	// Optional online geocoding fallback for cities missing from the CSVs.
	GeocoderAPIKey string

	// Local data sources.
	GeodataDir  string
	CatalogPath string

	// Climate period the normals and dailies cover.
	NormalsStartYear int
	NormalsEndYear   int

	// NormalsRefreshInterval controls how often the normals cache is
	// rebuilt in the background.
	NormalsRefreshInterval time.Duration

	// DailiesCacheMaxAge bounds how long historical-day results are reused.
	DailiesCacheMaxAge time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.MeteostatAPIKey = os.Getenv("METEOSTAT_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.GeodataDir = getenvDefault("GEODATA_DIR", "geodata")
	cfg.CatalogPath = getenvDefault("CATALOG_PATH", "cities.json")

	cfg.NormalsStartYear = getenvInt("NORMALS_START_YEAR", 1991)
	cfg.NormalsEndYear = getenvInt("NORMALS_END_YEAR", 2020)
	if cfg.NormalsStartYear >= cfg.NormalsEndYear {
		return nil, fmt.Errorf("normals period %d-%d is empty", cfg.NormalsStartYear, cfg.NormalsEndYear)
	}

	refreshStr := getenvDefault("NORMALS_REFRESH_INTERVAL", "24h")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid NORMALS_REFRESH_INTERVAL: %w", err)
	}
	cfg.NormalsRefreshInterval = refresh

	maxAgeStr := getenvDefault("DAILIES_CACHE_MAX_AGE", "168h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILIES_CACHE_MAX_AGE: %w", err)
	}
	cfg.DailiesCacheMaxAge = maxAge

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// Timespan returns the climate period label, e.g. "1991-2020".
func (c *AppConfig) Timespan() string {
	return fmt.Sprintf("%d-%d", c.NormalsStartYear, c.NormalsEndYear)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
