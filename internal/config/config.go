// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	LLM     LLMConfig
	Lookup  LookupConfig
	Catalog CatalogConfig
	Feed    FeedConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// Format is "json" or "pretty". Empty picks json in production.
	Format string
}

// DataConfig holds on-disk storage configuration.
type DataConfig struct {
	// BasePath holds the SQLite database and the Badger cache directory.
	BasePath string
}

// DatabasePath is the SQLite file for the catalog, libraries and history.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.BasePath, "novelly.db")
}

// CachePath is the Badger directory for lookup and feed caches.
func (d DataConfig) CachePath() string {
	return filepath.Join(d.BasePath, "cache")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 120s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed browser origins (default: any)

	// Per-IP request budget for /api/v1. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// LLMConfig holds generative model configuration.
type LLMConfig struct {
	APIKey            string
	Model             string
	DeepModel         string // Used for interview-mode recommendations
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LookupConfig holds external book lookup configuration.
type LookupConfig struct {
	GoogleBooksAPIKey  string
	GoogleBooksBaseURL string
	OpenLibraryBaseURL string
	ITunesBaseURL      string
	ITunesEnabled      bool
	CacheTTL           time.Duration // How long found answers are cached (default: 7 days)
	MissTTL            time.Duration // How long "no match" answers are cached (default: 24h)
}

// CatalogConfig holds catalog and hydration tuning.
type CatalogConfig struct {
	EnrichmentQueueSize int
	EnrichmentBatch     int
	HydrationBatchSize  int
	HydrationDelay      time.Duration
	SearchLimit         int
}

// FeedConfig holds home feed configuration.
type FeedConfig struct {
	TTL time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, pretty)")
	dataPath := flag.String("data-path", "", "Base path for the database and caches")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 120s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed origins (default: any)")
	rateLimit := flag.String("rate-limit", "", "Requests per window per IP on /api/v1 (default: 120, 0 disables)")

	// Model flags
	llmModel := flag.String("llm-model", "", "Generative model (default: sonar-pro)")
	llmTimeout := flag.String("llm-timeout", "", "Generative model request timeout (default: 120s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:       splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
			RateLimitRequests: getIntConfigValue(*rateLimit, "RATE_LIMIT_REQUESTS", 120),
		},
		LLM: LLMConfig{
			APIKey:            getConfigValue("", "PERPLEXITY_API_KEY", ""),
			Model:             getConfigValue(*llmModel, "PERPLEXITY_MODEL", "sonar-pro"),
			DeepModel:         getConfigValue("", "PERPLEXITY_DEEP_MODEL", "sonar-deep-research"),
			BaseURL:           getConfigValue("", "PERPLEXITY_BASE_URL", ""),
			RequestsPerSecond: getFloatConfigValue("", "PERPLEXITY_RPS", 2),
		},
		Lookup: LookupConfig{
			GoogleBooksAPIKey:  getConfigValue("", "GOOGLE_BOOKS_API_KEY", ""),
			GoogleBooksBaseURL: getConfigValue("", "GOOGLE_BOOKS_BASE_URL", ""),
			OpenLibraryBaseURL: getConfigValue("", "OPEN_LIBRARY_BASE_URL", ""),
			ITunesBaseURL:      getConfigValue("", "ITUNES_BASE_URL", ""),
			ITunesEnabled:      getBoolConfigValue("", "ITUNES_ENABLED", true),
		},
		Catalog: CatalogConfig{
			EnrichmentQueueSize: getIntConfigValue("", "ENRICHMENT_QUEUE_SIZE", 500),
			EnrichmentBatch:     getIntConfigValue("", "ENRICHMENT_BATCH", 3),
			HydrationBatchSize:  getIntConfigValue("", "HYDRATION_BATCH_SIZE", 5),
			SearchLimit:         getIntConfigValue("", "CATALOG_SEARCH_LIMIT", 20),
		},
	}

	durations := []struct {
		dst        *time.Duration
		flagValue  string
		envKey     string
		defaultVal string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "120s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.RateLimitWindow, "", "RATE_LIMIT_WINDOW", "1m"},
		{&cfg.LLM.Timeout, *llmTimeout, "PERPLEXITY_TIMEOUT", "120s"},
		{&cfg.Lookup.CacheTTL, "", "LOOKUP_CACHE_TTL", "168h"},
		{&cfg.Lookup.MissTTL, "", "LOOKUP_MISS_TTL", "24h"},
		{&cfg.Catalog.HydrationDelay, "", "HYDRATION_DELAY", "100ms"},
		{&cfg.Feed.TTL, "", "FEED_TTL", "24h"},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flagValue, d.envKey, d.defaultVal)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	switch c.Logger.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Catalog.EnrichmentBatch <= 0 {
		return fmt.Errorf("ENRICHMENT_BATCH must be positive, got %d", c.Catalog.EnrichmentBatch)
	}
	if c.Catalog.HydrationBatchSize <= 0 {
		return fmt.Errorf("HYDRATION_BATCH_SIZE must be positive, got %d", c.Catalog.HydrationBatchSize)
	}
	if c.Catalog.EnrichmentQueueSize <= 0 {
		return fmt.Errorf("ENRICHMENT_QUEUE_SIZE must be positive, got %d", c.Catalog.EnrichmentQueueSize)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS cannot be negative, got %d", c.Server.RateLimitRequests)
	}

	// A missing API key is allowed: generation endpoints answer 503 and
	// catalog resolution degrades to fallback entries.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Novelly/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Novelly", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
// Unlike the other getters a malformed value is an error, not the default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
