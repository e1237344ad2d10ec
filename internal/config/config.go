package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultBoundaryURL is the boundary document fetched when the user has not
// supplied one.
const DefaultBoundaryURL = "https://raw.githubusercontent.com/leakyMirror/map-of-europe/master/GeoJSON/europe.geojson"

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Upload   UploadConfig   `yaml:"upload" mapstructure:"upload"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP UI surface.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// FetchDefaultBoundaries loads the default boundary source at startup.
	FetchDefaultBoundaries bool `yaml:"fetch_default_boundaries" mapstructure:"fetch_default_boundaries"`
}

// RenderConfig controls the drawing surface and projection.
type RenderConfig struct {
	Width             float64   `yaml:"width" mapstructure:"width"`
	Height            float64   `yaml:"height" mapstructure:"height"`
	Projection        string    `yaml:"projection" mapstructure:"projection"`
	Rotate            []float64 `yaml:"rotate" mapstructure:"rotate"`
	Scale             float64   `yaml:"scale" mapstructure:"scale"`
	SimplifyTolerance float64   `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	Precision         int       `yaml:"precision" mapstructure:"precision"`
	PNG               PNGConfig `yaml:"png" mapstructure:"png"`
}

// PNGConfig controls raster export.
type PNGConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// BoundaryConfig configures where boundary geometry comes from and how
// fetched documents are cached.
type BoundaryConfig struct {
	DefaultURL      string `yaml:"default_url" mapstructure:"default_url"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries      int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	CacheDriver     string `yaml:"cache_driver" mapstructure:"cache_driver"`
	CacheEntries    int    `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	RedisURL        string `yaml:"redis_url" mapstructure:"redis_url"`
	TempDir         string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// StoreConfig configures the preset database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// UploadConfig bounds uploaded file sizes.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOPLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.fetch_default_boundaries", true)
	v.SetDefault("render.width", 960)
	v.SetDefault("render.height", 800)
	v.SetDefault("render.projection", "azimuthal-equal-area")
	v.SetDefault("render.rotate", []float64{-10, -52})
	v.SetDefault("render.scale", 800)
	v.SetDefault("render.simplify_tolerance", 0)
	v.SetDefault("render.precision", 2)
	v.SetDefault("render.png.width", 960)
	v.SetDefault("render.png.height", 800)
	v.SetDefault("boundary.default_url", DefaultBoundaryURL)
	v.SetDefault("boundary.timeout_secs", 30)
	v.SetDefault("boundary.max_retries", 3)
	v.SetDefault("boundary.user_agent", "geoplot/1.0")
	v.SetDefault("boundary.cache_driver", "memory")
	v.SetDefault("boundary.cache_entries", 16)
	v.SetDefault("boundary.cache_ttl_minutes", 60)
	v.SetDefault("boundary.temp_dir", "/tmp/geoplot")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geoplot.db")
	v.SetDefault("upload.max_bytes", 64<<20)

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

// Validate checks the settings a given command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, "render.width and render.height must be > 0")
	}
	if c.Render.Scale <= 0 {
		errs = append(errs, "render.scale must be > 0")
	}
	if len(c.Render.Rotate) != 0 && len(c.Render.Rotate) != 2 {
		errs = append(errs, "render.rotate must have exactly 2 values")
	}
	switch c.Render.Projection {
	case "azimuthal-equal-area", "mercator", "equirectangular":
	default:
		errs = append(errs, fmt.Sprintf("render.projection %q is not supported", c.Render.Projection))
	}

	switch mode {
	case "render":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Upload.MaxBytes <= 0 {
			errs = append(errs, "upload.max_bytes must be > 0")
		}
	case "preset":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Boundary.CacheDriver {
	case "", "memory", "none":
	case "redis":
		if c.Boundary.RedisURL == "" {
			errs = append(errs, "boundary.redis_url is required for the redis cache driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("boundary.cache_driver %q is not supported", c.Boundary.CacheDriver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
