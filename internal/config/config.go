package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jask/edgeaudit/internal/api"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig
	UI      UIConfig
	Log     LogConfig
	History HistoryConfig
	Metrics MetricsConfig
}

// APIConfig holds remote service settings.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	FilterDebounce time.Duration `mapstructure:"filter_debounce"`
	SuccessDelay   time.Duration `mapstructure:"success_delay"`
	DefaultSort    string        `mapstructure:"default_sort"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	Path  string
	JSON  bool
}

// HistoryConfig holds the local submission journal settings.
type HistoryConfig struct {
	Path    string
	Enabled bool
}

// MetricsConfig holds the prometheus listener settings. An empty Addr
// disables the listener.
type MetricsConfig struct {
	Addr string
}

// Default returns the built-in configuration.
func Default() Config {
	home := os.Getenv("HOME")
	return Config{
		API: APIConfig{BaseURL: "http://localhost:8000"},
		UI: UIConfig{
			PageSize:       20,
			FilterDebounce: 500 * time.Millisecond,
			SuccessDelay:   1500 * time.Millisecond,
			DefaultSort:    string(api.SortSubmittedAt),
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(home, ".local", "state", "edgeaudit", "edgeaudit.log"),
		},
		History: HistoryConfig{
			Path:    filepath.Join(home, ".local", "share", "edgeaudit", "history.db"),
			Enabled: true,
		},
	}
}

// Path returns the config file location. EDGEAUDIT_CONFIG overrides the default.
func Path() string {
	if p := os.Getenv("EDGEAUDIT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "edgeaudit", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix EDGEAUDIT_.
func Load() (Config, error) {
	v := viper.New()
	d := Default()

	// default values
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.request_timeout", d.API.RequestTimeout)
	v.SetDefault("ui.page_size", d.UI.PageSize)
	v.SetDefault("ui.filter_debounce", d.UI.FilterDebounce)
	v.SetDefault("ui.success_delay", d.UI.SuccessDelay)
	v.SetDefault("ui.default_sort", d.UI.DefaultSort)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("EDGEAUDIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects settings the client cannot start with.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute URL", c.API.BaseURL)
	}
	if c.API.RequestTimeout < 0 {
		return fmt.Errorf("api.request_timeout must not be negative")
	}
	if c.UI.PageSize <= 0 {
		return fmt.Errorf("ui.page_size must be positive, got %d", c.UI.PageSize)
	}
	if c.UI.FilterDebounce < 0 || c.UI.SuccessDelay < 0 {
		return fmt.Errorf("ui delays must not be negative")
	}
	if _, err := api.ParseSortKey(c.UI.DefaultSort); err != nil {
		return fmt.Errorf("ui.default_sort: %w", err)
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.request_timeout", cfg.API.RequestTimeout.String())
	v.Set("ui.page_size", cfg.UI.PageSize)
	v.Set("ui.filter_debounce", cfg.UI.FilterDebounce.String())
	v.Set("ui.success_delay", cfg.UI.SuccessDelay.String())
	v.Set("ui.default_sort", cfg.UI.DefaultSort)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.json", cfg.Log.JSON)
	v.Set("history.path", cfg.History.Path)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("metrics.addr", cfg.Metrics.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
