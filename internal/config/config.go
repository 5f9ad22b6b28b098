package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// AppConfig holds the proxy server configuration.
type AppConfig struct {
	WeatherAPIKey     string
	WeatherAPIBaseURL string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// Upstream response cache retention.
	CacheMaxEntries    int
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	AllowedOrigins string
	AccessLog      bool

	Port string
}

// ClientConfig holds the terminal client configuration.
type ClientConfig struct {
	DashboardURL    string
	DebounceDelay   time.Duration
	DefaultLocation weather.LocationQuery

	// Offline cache worker.
	OfflineCacheVersion string
	RedisAddr           string

	SettingsFile string

	// Geolocation source: "static", "ip", "denied" or "" (unsupported).
	GeoProvider string
	GeoLat      float64
	GeoLon      float64
	GeoIPURL    string
}

func loadDotenv() {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Debugf("no .env file found or error loading it: %v", err)
	}
}

// Load reads the server configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	loadDotenv()
	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_KEY")
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHERAPI_BASE_URL", "https://api.weatherapi.com/v1")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	// Matches the ten minute upstream revalidation window.
	if cfg.CacheTTL, err = getenvDuration("UPSTREAM_CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.CacheSweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	cfg.CacheMaxEntries = getenvInt("UPSTREAM_CACHE_MAX_ENTRIES", 1000)

	cfg.AllowedOrigins = os.Getenv("CORS_ALLOWED_ORIGINS")
	cfg.AccessLog = getenvBool("ACCESS_LOG", true)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// LoadClient reads the terminal client configuration.
func LoadClient() (*ClientConfig, error) {
	loadDotenv()
	cfg := &ClientConfig{}

	cfg.DashboardURL = strings.TrimRight(getenvDefault("DASHBOARD_URL", "http://localhost:8080"), "/")

	var err error
	if cfg.DebounceDelay, err = getenvDuration("DEBOUNCE_DELAY", "300ms"); err != nil {
		return nil, err
	}
	cfg.DefaultLocation = weather.NormalizeQuery(getenvDefault("DEFAULT_LOCATION", string(weather.DefaultLocation)))

	cfg.OfflineCacheVersion = getenvDefault("OFFLINE_CACHE_VERSION", "aurora-cache-v1")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.SettingsFile = os.Getenv("SETTINGS_FILE")

	cfg.GeoProvider = strings.ToLower(os.Getenv("GEO_PROVIDER"))
	cfg.GeoIPURL = getenvDefault("GEO_IP_URL", "http://ip-api.com/json")
	if cfg.GeoProvider == "static" {
		if cfg.GeoLat, err = getenvFloat("GEO_LAT"); err != nil {
			return nil, err
		}
		if cfg.GeoLon, err = getenvFloat("GEO_LON"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
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

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (float64, error) {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
