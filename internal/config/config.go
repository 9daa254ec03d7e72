// README: Config loader with env defaults for HTTP, model, places upstream, caches and quota.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PlacesConfig struct {
	APIKey         string
	RequestsPerSec float64
	CacheTTL       time.Duration
}

type PlanningConfig struct {
	GenerateTimeout time.Duration
	MaxToolCalls    int
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	AI struct {
		GeminiKey string
		Model     string
	}
	Places   PlacesConfig
	Planning PlanningConfig
	Quota    struct {
		Monthly int
	}
	Log struct {
		Level string
		JSON  bool
	}
	Tracing struct {
		OTLPEndpoint string
	}
}

// Load reads configuration from the environment, after merging an optional .env file.
// Variables already present in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("PLANNER_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("PLANNER_DB_DSN")
	cfg.Redis.Addr = os.Getenv("PLANNER_REDIS_ADDR")
	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.Model = envOrDefault("PLANNER_GEMINI_MODEL", "gemini-2.0-flash")
	cfg.Places.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Places.RequestsPerSec = envOrDefaultFloat("PLANNER_PLACES_RPS", 10)
	cfg.Places.CacheTTL = envOrDefaultDuration("PLANNER_PLACES_CACHE_TTL", 10*time.Minute)
	cfg.Planning.GenerateTimeout = envOrDefaultDuration("PLANNER_GENERATE_TIMEOUT", 90*time.Second)
	cfg.Planning.MaxToolCalls = envOrDefaultInt("PLANNER_MAX_TOOL_CALLS", 24)
	cfg.Quota.Monthly = envOrDefaultInt("PLANNER_MONTHLY_QUOTA", 100)
	cfg.Log.Level = envOrDefault("PLANNER_LOG_LEVEL", "info")
	cfg.Log.JSON = envOrDefaultBool("PLANNER_LOG_JSON", true)
	cfg.Tracing.OTLPEndpoint = os.Getenv("PLANNER_OTLP_ENDPOINT")

	if cfg.AI.GeminiKey == "" {
		return cfg, errors.New("environment variable GEMINI_API_KEY is required")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
