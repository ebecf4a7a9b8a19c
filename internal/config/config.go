package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rojas-cambio/cambio/internal/model"
)

// FileName is the config file at the root of a data directory.
const FileName = "cambio.yaml"

// Config represents the top-level cambio.yaml configuration.
type Config struct {
	Business   BusinessConfig `yaml:"business"`
	Currencies []string       `yaml:"currencies"`
	Storage    StorageConfig  `yaml:"storage"`
	Rates      RatesConfig    `yaml:"rates"`
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
	Git        GitConfig      `yaml:"git"`

	// JWTSecret is read from the environment only.
	JWTSecret string `yaml:"-"`
}

// BusinessConfig identifies the exchange house.
type BusinessConfig struct {
	Name          string `yaml:"name"`
	LocalCurrency string `yaml:"local_currency"`
}

// StorageConfig selects the transaction store.
type StorageConfig struct {
	Driver string `yaml:"driver"`         // "csv" or "sqlite"
	Path   string `yaml:"path,omitempty"` // sqlite file, relative to the data dir
}

// RatesConfig controls where quoted rates come from.
type RatesConfig struct {
	Provider string        `yaml:"provider"` // "simulated" or "yahoo"
	Fallback bool          `yaml:"fallback"` // fall back to simulated rates on failure
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
	Margin   string        `yaml:"margin"` // buy/sell spread around the market rate
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	Burst     int           `yaml:"burst"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a cambio.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// LoadDir reads <dir>/cambio.yaml, then applies <dir>/.env and the process
// environment on top.
func LoadDir(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		// Load never overrides variables already set in the process.
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", envPath, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:          businessName,
			LocalCurrency: string(model.PEN),
		},
		Currencies: []string{string(model.USD), string(model.EUR)},
		Storage: StorageConfig{
			Driver: "csv",
		},
		Rates: RatesConfig{
			Provider: "simulated",
			Fallback: true,
			CacheTTL: 5 * time.Minute,
			Timeout:  8 * time.Second,
			Margin:   "0.04",
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			TokenTTL:  12 * time.Hour,
			RateLimit: 10,
			Burst:     30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Cambio",
			AuthorEmail: "cambio@localhost",
		},
	}
}

// ApplyEnv overrides fields from CAMBIO_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CAMBIO_LOG_LEVEL", &c.Log.Level)
	str("CAMBIO_LOG_FORMAT", &c.Log.Format)
	str("CAMBIO_ADDR", &c.Server.Addr)
	str("CAMBIO_STORAGE_DRIVER", &c.Storage.Driver)
	str("CAMBIO_STORAGE_PATH", &c.Storage.Path)
	str("CAMBIO_RATES_PROVIDER", &c.Rates.Provider)
	str("CAMBIO_JWT_SECRET", &c.JWTSecret)

	if v, ok := lookup("CAMBIO_TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CAMBIO_TOKEN_TTL: %w", err)
		}
		c.Server.TokenTTL = d
	}
	if v, ok := lookup("CAMBIO_AUTO_COMMIT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CAMBIO_AUTO_COMMIT: %w", err)
		}
		c.Git.AutoCommit = b
	}
	return nil
}

// Validate checks enumerated fields and currency codes.
func (c *Config) Validate() error {
	if _, err := c.CurrencyCodes(); err != nil {
		return err
	}
	if len(c.Currencies) == 0 {
		return errors.New("config: at least one currency is required")
	}
	switch c.Storage.Driver {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Rates.Provider {
	case "simulated", "yahoo":
	default:
		return fmt.Errorf("config: unknown rates provider %q", c.Rates.Provider)
	}
	return nil
}

// CurrencyCodes returns the traded currencies.
func (c *Config) CurrencyCodes() ([]model.Currency, error) {
	codes, err := model.ParseCurrencies(c.Currencies)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return codes, nil
}

// Local returns the local currency, PEN when unset.
func (c *Config) Local() model.Currency {
	if cur, err := model.ParseCurrency(c.Business.LocalCurrency); err == nil {
		return cur
	}
	return model.PEN
}

// StoragePath returns the sqlite file path resolved against dir.
func (c *Config) StoragePath(dir string) string {
	p := c.Storage.Path
	if p == "" {
		p = "cambio.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
