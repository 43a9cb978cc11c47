// Package config defines runtime defaults, validation, and loading of the
// collaboration hub settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// ServerConfig holds the HTTP and WebSocket listener settings.
type ServerConfig struct {
	Port           string          `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	MaxMessageSize int64           `yaml:"max_message_size"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// HubConfig tunes the realtime dispatch loop.
type HubConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// RequireDocumentMembership restricts document rooms to project members.
	RequireDocumentMembership bool `yaml:"require_document_membership"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds the token verification secret.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Hub    HubConfig    `yaml:"hub"`
	DB     DBConfig     `yaml:"db"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

const (
	defaultPort           = ":8080"
	defaultMaxMessageSize = 64 * 1024
	defaultBurst          = 20
	defaultSendBuffer     = 256
	defaultStoreTimeout   = 5 * time.Second
	defaultTokenTTL       = 7 * 24 * time.Hour
)

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: defaultPort,
			AllowedOrigins: []string{
				"http://localhost:8080",
			},
			MaxMessageSize: defaultMaxMessageSize,
			RateLimit: RateLimitConfig{
				Burst:          defaultBurst,
				RefillInterval: time.Second,
			},
		},
		Hub: HubConfig{
			SendBuffer:                defaultSendBuffer,
			StoreTimeout:              defaultStoreTimeout,
			RequireDocumentMembership: true,
		},
		DB: DBConfig{
			Path: "collabhub.db",
		},
		Auth: AuthConfig{
			JWTSecret: "secret",
			TokenTTL:  defaultTokenTTL,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Sanitize replaces missing or invalid values with their defaults.
func (c Config) Sanitize() Config {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxMessageSize <= 0 {
		c.Server.MaxMessageSize = defaultMaxMessageSize
	}
	if c.Server.RateLimit.Burst <= 0 {
		c.Server.RateLimit.Burst = defaultBurst
	}
	if c.Server.RateLimit.RefillInterval <= 0 {
		c.Server.RateLimit.RefillInterval = time.Second
	}
	if c.Hub.SendBuffer <= 0 {
		c.Hub.SendBuffer = defaultSendBuffer
	}
	if c.Hub.StoreTimeout <= 0 {
		c.Hub.StoreTimeout = defaultStoreTimeout
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return c
}

// Load reads configuration from an optional YAML file named by
// COLLABHUB_CONFIG_PATH, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("COLLABHUB_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg.Sanitize(), nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.Server.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.Server.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.Server.RateLimit.Burst = parseIntValue(burst, cfg.Server.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.Server.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.Server.RateLimit.RefillInterval)
	}
	if path := os.Getenv("COLLABHUB_DB_PATH"); path != "" {
		cfg.DB.Path = path
	}
	if secret := os.Getenv("COLLABHUB_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if require := os.Getenv("COLLABHUB_REQUIRE_DOCUMENT_MEMBERSHIP"); require != "" {
		if parsed, err := strconv.ParseBool(require); err == nil {
			cfg.Hub.RequireDocumentMembership = parsed
		}
	}
	if level := os.Getenv("COLLABHUB_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("COLLABHUB_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
