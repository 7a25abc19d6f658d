package locale

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/valentin-kaiser/go-locale/apperror"
	"github.com/valentin-kaiser/go-locale/detector"
	"gopkg.in/yaml.v2"
)

// Config describes an engine in a form that can be loaded from a YAML file
// or bound to command-line flags. All durations are in seconds.
type Config struct {
	BasePath      string `yaml:"base_path"`
	DefaultLocale string `yaml:"default_locale"`
	AutoDetect    bool   `yaml:"auto_detect"`
	CacheTTL      int    `yaml:"cache_ttl"`
	CheckInterval int    `yaml:"check_interval"`
	FetchTimeout  int    `yaml:"fetch_timeout"`
}

// DefaultConfig returns the configuration a bare NewEngine starts with
func DefaultConfig() *Config {
	return &Config{
		BasePath:      ".",
		DefaultLocale: detector.DefaultLocale,
		AutoDetect:    true,
		CacheTTL:      300,
		CheckInterval: 300,
		FetchTimeout:  30,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return apperror.NewError("base path cannot be empty")
	}
	if c.DefaultLocale == "" {
		return apperror.NewError("default locale cannot be empty")
	}
	if c.CacheTTL < 0 {
		return apperror.NewError("cache ttl cannot be negative")
	}
	if c.CheckInterval < 0 {
		return apperror.NewError("check interval cannot be negative")
	}
	if c.FetchTimeout <= 0 {
		return apperror.NewError("fetch timeout must be greater than 0")
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.NewErrorf("reading configuration file %q failed", path).AddError(err)
	}

	config := DefaultConfig()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, apperror.NewErrorf("parsing configuration file %q failed", path).AddError(err)
	}

	err = config.Validate()
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return config, nil
}

// RegisterFlags binds the configuration fields to the given flag set
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.BasePath, "locale-path", c.BasePath, "Base directory or URL of the locale files")
	fs.StringVar(&c.DefaultLocale, "locale-default", c.DefaultLocale, "Default locale tag")
	fs.BoolVar(&c.AutoDetect, "locale-auto-detect", c.AutoDetect, "Detect the system locale on startup")
	fs.IntVar(&c.CacheTTL, "locale-cache-ttl", c.CacheTTL, "Cache validity window in seconds")
	fs.IntVar(&c.CheckInterval, "locale-check-interval", c.CheckInterval, "Staleness check interval in seconds")
	fs.IntVar(&c.FetchTimeout, "locale-fetch-timeout", c.FetchTimeout, "Remote fetch timeout in seconds")
}

// NewEngineFromConfig creates an engine from a validated configuration.
// Start must still be called.
func NewEngineFromConfig(config *Config) (*Engine, error) {
	err := config.Validate()
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	return NewEngine().
		WithBasePath(config.BasePath).
		WithDefaultLocale(config.DefaultLocale).
		WithAutoDetect(config.AutoDetect).
		WithCacheTTL(time.Duration(config.CacheTTL) * time.Second).
		WithCheckInterval(time.Duration(config.CheckInterval) * time.Second).
		WithFetchTimeout(time.Duration(config.FetchTimeout) * time.Second), nil
}
