package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig  `yaml:"store" mapstructure:"store"`
	Server    ServerConfig `yaml:"server" mapstructure:"server"`
	Log       LogConfig    `yaml:"log" mapstructure:"log"`
	Stac      StacConfig   `yaml:"stac" mapstructure:"stac"`
	Fetch     FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Wcs       WcsConfig    `yaml:"wcs" mapstructure:"wcs"`
	Tiling    TilingConfig `yaml:"tiling" mapstructure:"tiling"`
	Providers string       `yaml:"providers_dir" mapstructure:"providers_dir"`
}

// StoreConfig configures the workflow store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StacConfig configures catalog access.
type StacConfig struct {
	UserAgent             string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs           int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond     float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	PageLimit             int     `yaml:"page_limit" mapstructure:"page_limit"`
	LastAssetValiditySecs int     `yaml:"last_asset_validity_secs" mapstructure:"last_asset_validity_secs"`
}

// Timeout returns the request timeout as a duration.
func (c StacConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// LastAssetValidity returns the synthetic validity window of the newest
// catalog asset.
func (c StacConfig) LastAssetValidity() time.Duration {
	return time.Duration(c.LastAssetValiditySecs) * time.Second
}

// FetchConfig configures asset download behavior.
type FetchConfig struct {
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheEntries      int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLSecs      int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// Timeout returns the request timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns the asset cache entry lifetime.
func (c FetchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// WcsConfig configures the coverage service.
type WcsConfig struct {
	// TileLimit caps how many tiles one GetCoverage request may consume.
	// Zero means unbounded.
	TileLimit int `yaml:"tile_limit" mapstructure:"tile_limit"`
}

// TilingConfig fixes the tile shape used by query processors.
type TilingConfig struct {
	TileRows int `yaml:"tile_rows" mapstructure:"tile_rows"`
	TileCols int `yaml:"tile_cols" mapstructure:"tile_cols"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geoengine.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("stac.user_agent", "geoengine/1.0")
	v.SetDefault("stac.timeout_secs", 30)
	v.SetDefault("stac.requests_per_second", 2)
	v.SetDefault("stac.page_limit", 500)
	v.SetDefault("stac.last_asset_validity_secs", 1)
	v.SetDefault("fetch.user_agent", "geoengine/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.requests_per_second", 4)
	v.SetDefault("fetch.cache_entries", 64)
	v.SetDefault("fetch.cache_ttl_secs", 300)
	v.SetDefault("wcs.tile_limit", 1024)
	v.SetDefault("tiling.tile_rows", 512)
	v.SetDefault("tiling.tile_cols", 512)
	v.SetDefault("providers_dir", "providers")

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

// Validate checks the settings the given command depends on.
func (c *Config) Validate(command string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite", "memory":
	default:
		problems = append(problems, "store.driver must be postgres, sqlite or memory")
	}

	if command == "serve" {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be a valid port")
		}
		if c.Wcs.TileLimit < 0 {
			problems = append(problems, "wcs.tile_limit must not be negative")
		}
	}
	if c.Tiling.TileRows < 1 || c.Tiling.TileCols < 1 {
		problems = append(problems, "tiling.tile_rows and tiling.tile_cols must be positive")
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
