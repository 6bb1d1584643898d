package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Catalog      CatalogConfig      `json:"catalog"`
	Narrative    NarrativeConfig    `json:"narrative"`
	Alternatives AlternativesConfig `json:"alternatives"`
	Cache        CacheConfig        `json:"cache"`
	Security     SecurityConfig     `json:"security"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	Tracing      TracingConfig      `json:"tracing"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
}

// CatalogConfig selects and locates the catalog backend.
type CatalogConfig struct {
	// Source is "file" or "sqlite"
	Source     string `json:"source"`
	OffersPath string `json:"offers_path"`
	EventsPath string `json:"events_path"`
	SQLitePath string `json:"sqlite_path"`
}

// NarrativeConfig configures the AI narrative mode.
type NarrativeConfig struct {
	Enabled        bool   `json:"enabled"`
	APIKey         string `json:"-"` // from ANTHROPIC_API_KEY only, never a file
	Model          string `json:"model"`
	MaxTokens      int64  `json:"max_tokens"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	TopK           int    `json:"top_k"`
}

// AlternativesConfig configures the relaxed-constraint search.
type AlternativesConfig struct {
	// OffsetsMinutes are the temporal relaxation offsets; positive means
	// later, negative earlier. Empty selects the engine defaults.
	OffsetsMinutes []int `json:"offsets_minutes"`
	TopK           int   `json:"top_k"`
}

// CacheConfig configures response caching.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	RedisAddr  string `json:"redis_addr"` // empty selects the in-memory cache
	RedisDB    int    `json:"redis_db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Environment string `json:"environment"`
}

// LoadConfig loads configuration from environment variables and/or a JSON
// config file. Environment variables take precedence over file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaults()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Catalog: CatalogConfig{
			Source:     "file",
			OffersPath: "./data/offers.json",
			EventsPath: "./data/events.json",
			SQLitePath: "./catalog.db",
		},
		Narrative: NarrativeConfig{
			Enabled:        true,
			Model:          "claude-haiku-4-5-20251001",
			MaxTokens:      1024,
			TimeoutSeconds: 10,
			TopK:           5,
		},
		Alternatives: AlternativesConfig{
			TopK: 10,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 60,
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
	}
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")

	setString(&cfg.Catalog.Source, "CATALOG_SOURCE")
	setString(&cfg.Catalog.OffersPath, "CATALOG_OFFERS_PATH")
	setString(&cfg.Catalog.EventsPath, "CATALOG_EVENTS_PATH")
	setString(&cfg.Catalog.SQLitePath, "CATALOG_SQLITE_PATH")

	setBool(&cfg.Narrative.Enabled, "NARRATIVE_ENABLED")
	setString(&cfg.Narrative.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Narrative.Model, "NARRATIVE_MODEL")
	setInt64(&cfg.Narrative.MaxTokens, "NARRATIVE_MAX_TOKENS")
	setInt(&cfg.Narrative.TimeoutSeconds, "NARRATIVE_TIMEOUT_SECONDS")
	setInt(&cfg.Narrative.TopK, "NARRATIVE_TOP_K")

	if offsets := os.Getenv("ALTERNATIVES_OFFSETS_MINUTES"); offsets != "" {
		var parsed []int
		for _, part := range strings.Split(offsets, ",") {
			if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				parsed = append(parsed, v)
			}
		}
		if len(parsed) > 0 {
			cfg.Alternatives.OffsetsMinutes = parsed
		}
	}
	setInt(&cfg.Alternatives.TopK, "ALTERNATIVES_TOP_K")

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.RedisAddr, "CACHE_REDIS_ADDR")
	setInt(&cfg.Cache.RedisDB, "CACHE_REDIS_DB")
	setInt(&cfg.Cache.TTLSeconds, "CACHE_TTL_SECONDS")

	setInt64(&cfg.Security.MaxRequestBodySize, "MAX_REQUEST_BODY_SIZE")
	setString(&cfg.Security.AllowedOrigins, "ALLOWED_ORIGINS")

	setBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	setInt(&cfg.RateLimit.Window, "RATE_LIMIT_WINDOW")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setString(&cfg.Tracing.Environment, "TRACING_ENVIRONMENT")
}

func setString(dest *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

func setBool(dest *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = strings.ToLower(value) == "true" || value == "1"
	}
}

func setInt(dest *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dest = i
		}
	}
}

func setInt64(dest *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dest = i
		}
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Catalog.Source {
	case "file":
		if c.Catalog.OffersPath == "" && c.Catalog.EventsPath == "" {
			return fmt.Errorf("at least one of offers_path or events_path is required for the file catalog")
		}
	case "sqlite":
		if c.Catalog.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite catalog")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if c.Narrative.Enabled && c.Narrative.TimeoutSeconds <= 0 {
		return fmt.Errorf("narrative timeout must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	return nil
}
