package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration sourced from env vars and an optional YAML file.
type Config struct {
	Port string

	StoreDriver  string
	DatabaseURL  string
	SQLitePath   string
	StoreTimeout time.Duration

	AuthJWTSecret string
	AuthJWKSURL   string
	AuthIssuer    string
	AuthAudience  string
	AuthTokenTTL  time.Duration

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	LLMTimeout        time.Duration
	SummaryCharBudget int

	MaxUploadBytes int64
	CORSOrigins    []string

	LogLevel string
	LogDev   bool
	LogFile  string
}

// source resolves a key from the environment first, then from CONFIG_FILE values.
type source map[string]string

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s[key])
}

// Load reads configuration and validates what every binary needs. The server
// additionally calls RequireLLM.
func Load() (Config, error) {
	src, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:          fallback(src.get("PORT"), "8080"),
		StoreDriver:   strings.ToLower(fallback(src.get("STORE_DRIVER"), DriverPostgres)),
		DatabaseURL:   src.get("DATABASE_URL"),
		SQLitePath:    fallback(src.get("SQLITE_PATH"), "data/zentra.db"),
		StoreTimeout:  time.Duration(positiveInt(src.get("STORE_TIMEOUT_MS"), 5000)) * time.Millisecond,
		AuthJWTSecret: src.get("AUTH_JWT_SECRET"),
		AuthJWKSURL:   src.get("AUTH_JWKS_URL"),
		AuthIssuer:    src.get("AUTH_ISSUER"),
		AuthAudience:  fallback(src.get("AUTH_AUDIENCE"), "authenticated"),
		AuthTokenTTL:  time.Duration(positiveInt(src.get("AUTH_TOKEN_TTL_MINUTES"), 60)) * time.Minute,

		OpenAIAPIKey:      src.get("OPENAI_API_KEY"),
		OpenAIBaseURL:     fallback(src.get("OPENAI_BASE_URL"), "https://api.openai.com/v1"),
		OpenAIModel:       fallback(src.get("OPENAI_MODEL"), "gpt-4o-mini"),
		OpenAIMaxTokens:   positiveInt(src.get("OPENAI_MAX_TOKENS"), 1024),
		LLMTimeout:        time.Duration(positiveInt(src.get("LLM_TIMEOUT_SECONDS"), 60)) * time.Second,
		SummaryCharBudget: positiveInt(src.get("SUMMARY_CHAR_BUDGET"), 12000),

		MaxUploadBytes: int64(positiveInt(src.get("MAX_UPLOAD_MB"), 10)) << 20,
		CORSOrigins:    parseCSV(fallback(src.get("CORS_ALLOWED_ORIGINS"), fallback(src.get("FRONTEND_URL"), "http://localhost:5173"))),

		LogLevel: strings.ToLower(fallback(src.get("LOG_LEVEL"), "info")),
		LogDev:   isTrue(src.get("LOG_DEV")),
		LogFile:  src.get("LOG_FILE"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if cfg.AuthJWTSecret == "" && cfg.AuthJWKSURL == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}

	return cfg, nil
}

// RequireLLM reports a missing LLM credential.
func (c Config) RequireLLM() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// readFile loads KEY: value pairs from a YAML document. An empty path yields no values.
func readFile(path string) (source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return source{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	src := make(source, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		src[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return src, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return def
}

func isTrue(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
