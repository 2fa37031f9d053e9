package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Build   BuildConfig   `yaml:"build" mapstructure:"build"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCode string `yaml:"country_code" mapstructure:"country_code"`
	MinDelayMS  int    `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
	BackoffSecs int    `yaml:"backoff_secs" mapstructure:"backoff_secs"`
}

// CacheConfig configures the geocode cache backend. The path extension picks
// the backend: .db/.sqlite for SQLite, anything else CSV.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BuildConfig configures the dataset build.
type BuildConfig struct {
	FlushEvery int `yaml:"flush_every" mapstructure:"flush_every"`
}

// MapConfig configures the rendered page.
type MapConfig struct {
	StylePath string `yaml:"style_path" mapstructure:"style_path"`
}

// ServerConfig configures the interactive map server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCHOOLMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "schoolmap/1.0")
	v.SetDefault("geocode.country_code", "ca")
	v.SetDefault("geocode.min_delay_ms", 1500)
	v.SetDefault("geocode.retries", 3)
	v.SetDefault("geocode.backoff_secs", 2)
	v.SetDefault("cache.path", "geocode_cache.csv")
	v.SetDefault("build.flush_every", 25)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed by the given mode ("build" or
// "serve"), collecting every problem into one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "build":
		check(c.Geocode.BaseURL != "", "geocode.base_url is required")
		check(c.Geocode.UserAgent != "", "geocode.user_agent is required")
		check(c.Geocode.MinDelayMS >= 0, "geocode.min_delay_ms must be >= 0")
		check(c.Geocode.Retries >= 1, "geocode.retries must be >= 1")
		check(c.Build.FlushEvery >= 1, "build.flush_every must be >= 1")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Geocode.BaseURL != "", "geocode.base_url is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
