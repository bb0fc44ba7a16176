package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"marktplaats-watcher/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Stores      StoresConfig      `mapstructure:"stores"`
	Marktplaats MarktplaatsConfig `mapstructure:"marktplaats"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Export      ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the result ledger.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the background watch cadence.
type SchedulerConfig struct {
	Tick         time.Duration `mapstructure:"tick"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// StoresConfig locates the operator-editable JSON stores.
type StoresConfig struct {
	Dir string `mapstructure:"dir"`
}

// SettingsPath returns the settings store file path.
func (s StoresConfig) SettingsPath() string {
	return filepath.Join(s.Dir, "settings.json")
}

// KeywordsPath returns the watch list store file path.
func (s StoresConfig) KeywordsPath() string {
	return filepath.Join(s.Dir, "keywords.json")
}

// MarktplaatsConfig covers access to the listing source.
type MarktplaatsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Strategy       string        `mapstructure:"strategy"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// TelegramConfig captures transport settings for the notifier. Bot and chat
// identifiers live in the operator settings store, not here.
type TelegramConfig struct {
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HTTPConfig configures the admin API listener.
type HTTPConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MPWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mpwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.tick", "60s")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("stores.dir", "config")

	v.SetDefault("marktplaats.base_url", "https://www.marktplaats.nl")
	v.SetDefault("marktplaats.strategy", "search")
	v.SetDefault("marktplaats.request_timeout", "15s")
	v.SetDefault("marktplaats.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", "10s")

	v.SetDefault("http.listen_addr", ":8000")
	v.SetDefault("http.shutdown_timeout", "5s")

	v.SetDefault("export.max_data_points", 10000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be greater than zero")
	}
	if c.Stores.Dir == "" {
		return fmt.Errorf("stores.dir must be set")
	}
	switch c.Marktplaats.Strategy {
	case "search", "page":
	default:
		return fmt.Errorf("marktplaats.strategy must be %q or %q", "search", "page")
	}
	if c.HTTP.ListenAddr == "" {
		return fmt.Errorf("http.listen_addr must be set")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
