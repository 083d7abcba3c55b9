// Package config handles configuration loading for the AI financial analyst.
// It supports YAML config files, a local .env file, and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported LLM backends.
const (
	BackendREST = "rest" // hand-written JSON client for generateContent
	BackendSDK  = "sdk"  // google.golang.org/genai
)

const envPrefix = "AIFIN"

// Config represents the complete application configuration.
type Config struct {
	FMP     FMPConfig     `mapstructure:"fmp"     yaml:"fmp"`
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Request RequestConfig `mapstructure:"request" yaml:"request"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FMPConfig holds Financial Modeling Prep settings.
type FMPConfig struct {
	APIKey  string        `mapstructure:"api_key"  yaml:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// LLMConfig holds the summary model configuration.
type LLMConfig struct {
	Backend     string        `mapstructure:"backend"     yaml:"backend"` // "rest" or "sdk"
	GeminiKey   string        `mapstructure:"gemini_key"  yaml:"gemini_key"`
	BaseURL     string        `mapstructure:"base_url"    yaml:"base_url"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// RequestConfig holds the defaults the form and CLI start from.
type RequestConfig struct {
	DefaultType   string `mapstructure:"default_type"   yaml:"default_type"`
	DefaultPeriod string `mapstructure:"default_period" yaml:"default_period"`
	DefaultLimit  int    `mapstructure:"default_limit"  yaml:"default_limit"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Debug reports whether debug logging is on.
func (l LoggingConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.aifinanalyst/config.yaml (home directory)
//  3. /etc/aifinanalyst/config.yaml (system)
//
// A .env file in the working directory is loaded first; it never overrides
// variables already present in the environment.
// Format: AIFIN_<SECTION>_<KEY>, e.g., AIFIN_FMP_API_KEY
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".aifinanalyst"))
	v.AddConfigPath("/etc/aifinanalyst")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored; a file that
// exists but does not parse is an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("error reading env file %s: %w", p, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fmp.api_key", "")
	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("fmp.timeout", "30s")

	v.SetDefault("llm.backend", BackendREST)
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.model", "gemini-1.5-pro")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", "120s")

	v.SetDefault("request.default_type", "Income Statement")
	v.SetDefault("request.default_period", "annual")
	v.SetDefault("request.default_limit", 4)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8501)
	v.SetDefault("api.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads the two secrets from the environment.
// The bare FMP_API_KEY / GEMINI_API_KEY names are honored as a fallback.
func overrideFromEnv(cfg *Config) {
	if cfg.FMP.APIKey == "" {
		cfg.FMP.APIKey = os.Getenv("FMP_API_KEY")
	}
	if key := os.Getenv("AIFIN_FMP_API_KEY"); key != "" {
		cfg.FMP.APIKey = key
	}
	if cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if key := os.Getenv("AIFIN_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
}

// Validate reports configuration values that would make a run fail.
// Missing API keys are reported too; callers that only need part of the
// config (e.g. "status") can ignore the error.
func (c *Config) Validate() error {
	var errs []error
	if c.FMP.APIKey == "" {
		errs = append(errs, errors.New("fmp.api_key is not set"))
	}
	if c.LLM.GeminiKey == "" {
		errs = append(errs, errors.New("llm.gemini_key is not set"))
	}
	switch c.LLM.Backend {
	case BackendREST, BackendSDK:
	default:
		errs = append(errs, fmt.Errorf("llm.backend must be %q or %q, got %q", BackendREST, BackendSDK, c.LLM.Backend))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is empty"))
	}
	if c.Request.DefaultLimit < 1 || c.Request.DefaultLimit > 10 {
		errs = append(errs, fmt.Errorf("request.default_limit must be in [1,10], got %d", c.Request.DefaultLimit))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	if c.FMP.Timeout < 0 || c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
