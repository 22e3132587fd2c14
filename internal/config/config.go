// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "config.yaml"

// Config holds the settings shared by the librarium processes.
type Config struct {
	Port              string  `yaml:"port"`
	LogLevel          string  `yaml:"logLevel"`
	DBURI             string  `yaml:"dbURI"`
	DBName            string  `yaml:"dbName"`
	DBConnectAttempts int     `yaml:"dbConnectAttempts"`
	JWTSecret         string  `yaml:"jwtSecret"`
	CatalogURL        string  `yaml:"catalogURL"`
	OTLPEndpoint      string  `yaml:"otlpEndpoint"`
	RateLimitRPS      float64 `yaml:"rateLimitRPS"`
	RateLimitBurst    int     `yaml:"rateLimitBurst"`
	TrustProxy        bool    `yaml:"trustProxy"`
	PageSize          int     `yaml:"pageSize"`
}

func defaults() Config {
	return Config{
		LogLevel:          "info",
		DBConnectAttempts: 5,
		RateLimitRPS:      20,
		RateLimitBurst:    40,
		PageSize:          10,
	}
}

// Load reads the YAML file at path (a missing file is not an error) and then
// applies environment overrides. A .env file in the working directory is
// loaded first so it can feed those overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DB_URI"); v != "" {
		cfg.DBURI = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("DB_CONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DBConnectAttempts = n
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("CATALOG_SERVICE_URL"); v != "" {
		cfg.CatalogURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TrustProxy = b
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
}

// ValidateCatalog checks the settings the catalog backend cannot start without.
func (c Config) ValidateCatalog() error {
	var missing []string
	if c.Port == "" {
		missing = append(missing, "port")
	}
	if c.DBURI == "" {
		missing = append(missing, "dbURI (DB_URI)")
	}
	if c.DBName == "" {
		missing = append(missing, "dbName (DB_NAME)")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "jwtSecret (JWT_SECRET)")
	}
	return missingErr(missing)
}

// ValidateWeb checks the settings the web front end cannot start without.
func (c Config) ValidateWeb() error {
	var missing []string
	if c.Port == "" {
		missing = append(missing, "port")
	}
	if c.CatalogURL == "" {
		missing = append(missing, "catalogURL (CATALOG_SERVICE_URL)")
	}
	if c.PageSize < 0 {
		return errors.New("config: pageSize must not be negative")
	}
	return missingErr(missing)
}

// ValidateDatabase checks only the database settings, for tools that talk to
// the database directly.
func (c Config) ValidateDatabase() error {
	var missing []string
	if c.DBURI == "" {
		missing = append(missing, "dbURI (DB_URI)")
	}
	if c.DBName == "" {
		missing = append(missing, "dbName (DB_NAME)")
	}
	return missingErr(missing)
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
}
