package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither a flag nor GIFTSPA_CONFIG provides a path.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level inputs resolved from the command line.
type AppConfig struct {
	ConfigPath string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	PublicURL string `yaml:"public-url"` // Base URL used in emailed links.
	// RetrievalRateLimit caps gift card lookups per client IP per minute.
	RetrievalRateLimit int `yaml:"retrieval-rate-limit"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the session store and rate limiter backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logrus output and file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// SecurityConfig holds secrets for signed links and lookup digests.
type SecurityConfig struct {
	ArtifactSecret string `yaml:"artifact-secret"`
	LookupSecret   string `yaml:"lookup-secret"`
	AdminKey       string `yaml:"admin-key"`
}

// SMTPConfig configures outbound email. An empty host selects the log notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// NATSConfig configures purchase event publication. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// PaymentConfig configures the mock payment gateway.
type PaymentConfig struct {
	DeclineTokens []string `yaml:"decline-tokens"`
}

// Config is the full file-backed configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Security SecurityConfig `yaml:"security"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	NATS     NATSConfig     `yaml:"nats"`
	Payment  PaymentConfig  `yaml:"payment"`
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:               ":8080",
			PublicURL:          "http://localhost:8080",
			RetrievalRateLimit: 10,
		},
		Database: DatabaseConfig{DSN: "data/giftspa.db"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Security: SecurityConfig{
			ArtifactSecret: "giftspa-dev-artifact-secret",
			LookupSecret:   "giftspa-dev-lookup-secret",
		},
		SMTP: SMTPConfig{Port: 587, From: "giftcards@luxuriousspa.example"},
		NATS: NATSConfig{Subject: "giftspa.giftcard.purchased"},
	}
}

// ResolveConfigPath picks the config path from the flag value, GIFTSPA_CONFIG, or the default.
func ResolveConfigPath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("GIFTSPA_CONFIG")); env != "" {
		return filepath.Clean(env)
	}
	return DefaultConfigPath
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the YAML file at path on top of the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	applyEnvOverrides(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// LoadDatabaseDSN returns only the database DSN from the config at path.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr is required")
	}
	if strings.TrimSpace(c.Security.ArtifactSecret) == "" {
		return errors.New("config: security.artifact-secret is required")
	}
	if strings.TrimSpace(c.Security.LookupSecret) == "" {
		return errors.New("config: security.lookup-secret is required")
	}
	return nil
}

// applyEnvOverrides lets GIFTSPA_* environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Addr, "GIFTSPA_SERVER_ADDR")
	overrideString(&cfg.Server.PublicURL, "GIFTSPA_PUBLIC_URL")
	overrideString(&cfg.Database.DSN, "GIFTSPA_DATABASE_DSN")
	overrideString(&cfg.Redis.Addr, "GIFTSPA_REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "GIFTSPA_REDIS_PASSWORD")
	overrideInt(&cfg.Redis.DB, "GIFTSPA_REDIS_DB")
	overrideString(&cfg.Log.Level, "GIFTSPA_LOG_LEVEL")
	overrideString(&cfg.Log.File, "GIFTSPA_LOG_FILE")
	overrideString(&cfg.Security.ArtifactSecret, "GIFTSPA_ARTIFACT_SECRET")
	overrideString(&cfg.Security.LookupSecret, "GIFTSPA_LOOKUP_SECRET")
	overrideString(&cfg.Security.AdminKey, "GIFTSPA_ADMIN_KEY")
	overrideString(&cfg.SMTP.Host, "GIFTSPA_SMTP_HOST")
	overrideInt(&cfg.SMTP.Port, "GIFTSPA_SMTP_PORT")
	overrideString(&cfg.SMTP.Username, "GIFTSPA_SMTP_USERNAME")
	overrideString(&cfg.SMTP.Password, "GIFTSPA_SMTP_PASSWORD")
	overrideString(&cfg.SMTP.From, "GIFTSPA_SMTP_FROM")
	overrideString(&cfg.NATS.URL, "GIFTSPA_NATS_URL")
}

func overrideString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			*target = trimmed
		}
	}
}

func overrideInt(target *int, key string) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*target = parsed
}
