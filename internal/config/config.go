package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load
const EnvPrefix = "BOOKSHELF"

// Session storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Metadata providers
const (
	ProviderOpenLibrary = "openlibrary"
	ProviderHardcover   = "hardcover"
	ProviderNone        = "none"
)

// Config holds all configuration for the application
type Config struct {
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Metadata MetadataConfig `yaml:"metadata"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// APIConfig points at the bookshelf service
type APIConfig struct {
	BaseURL string        `yaml:"base_url" split_words:"true"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig controls where the edit token is kept
type SessionConfig struct {
	Backend       string `yaml:"backend"`
	Key           string `yaml:"key"`
	Path          string `yaml:"path"`
	Encrypt       bool   `yaml:"encrypt"`
	EncryptionKey string `yaml:"encryption_key" split_words:"true"`
	RedisAddr     string `yaml:"redis_addr" split_words:"true"`
	RedisPassword string `yaml:"redis_password" split_words:"true"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
}

// MetadataConfig selects and tunes the book metadata provider
type MetadataConfig struct {
	Provider       string        `yaml:"provider"`
	OpenLibraryURL string        `yaml:"openlibrary_url" envconfig:"OPENLIBRARY_URL"`
	HardcoverURL   string        `yaml:"hardcover_url" split_words:"true"`
	HardcoverToken string        `yaml:"hardcover_token" split_words:"true"`
	Rate           time.Duration `yaml:"rate"`
	Burst          int           `yaml:"burst"`
	CacheTTL       time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
}

// LoggingConfig configures internal/logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the local preview server
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// DataDir is the directory holding local state by default
func DataDir() string {
	if dir := os.Getenv("BOOKSHELF_DATA_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bookshelf")
	}
	return ".bookshelf"
}

// DefaultPath is the config file read when none is given
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000/api",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Backend: BackendFile,
			Key:     "bookshelf-edit-token",
		},
		Metadata: MetadataConfig{
			Provider:       ProviderOpenLibrary,
			OpenLibraryURL: "https://openlibrary.org",
			HardcoverURL:   "https://api.hardcover.app/v1/graphql",
			Rate:           200 * time.Millisecond,
			Burst:          5,
			CacheTTL:       30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, an
// optional .env file and BOOKSHELF_* environment variables, in that order.
// A missing file at the default path is not an error; a missing file that was
// asked for explicitly is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.decode(bytes.NewReader(data))
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SessionPath returns the storage location for file, sqlite and bolt backends
func (c *Config) SessionPath() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	switch c.Session.Backend {
	case BackendSQLite:
		return filepath.Join(DataDir(), "bookshelf.db")
	case BackendBolt:
		return filepath.Join(DataDir(), "bookshelf.bolt")
	default:
		return filepath.Join(DataDir(), "session.json")
	}
}

// KeyPath is where a generated encryption key is stored next to the session
func (c *Config) KeyPath() string {
	return c.SessionPath() + ".key"
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "api.base_url", Msg: "must be an absolute http(s) URL"}
	}
	if c.API.Timeout <= 0 {
		return &ConfigError{Field: "api.timeout", Msg: "must be positive"}
	}

	switch c.Session.Backend {
	case BackendFile, BackendSQLite, BackendBolt, BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return &ConfigError{Field: "session.redis_addr", Msg: "is required for the redis backend"}
		}
	default:
		return &ConfigError{Field: "session.backend", Msg: fmt.Sprintf("unknown backend %q", c.Session.Backend)}
	}
	if strings.TrimSpace(c.Session.Key) == "" {
		return &ConfigError{Field: "session.key", Msg: "must not be empty"}
	}

	switch c.Metadata.Provider {
	case ProviderOpenLibrary, ProviderNone:
	case ProviderHardcover:
		if c.Metadata.HardcoverToken == "" {
			return &ConfigError{Field: "metadata.hardcover_token", Msg: "is required for the hardcover provider"}
		}
	default:
		return &ConfigError{Field: "metadata.provider", Msg: fmt.Sprintf("unknown provider %q", c.Metadata.Provider)}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}
