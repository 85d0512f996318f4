// Package config loads server settings from an optional YAML file and
// IMAGE_MCP_* environment variables.
//
// Environment variables override the file: log.level is IMAGE_MCP_LOG_LEVEL,
// minio.access_key is IMAGE_MCP_MINIO_ACCESS_KEY and so on. Preset names are
// case-insensitive and always reported in lower case.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "IMAGE_MCP"

// Config represents the application configuration
type Config struct {
	Log     LogConfig               `mapstructure:"log"`
	Cache   CacheConfig             `mapstructure:"cache"`
	Render  RenderConfig            `mapstructure:"render"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Minio   MinioConfig             `mapstructure:"minio"`
	Presets map[string]PresetConfig `mapstructure:"presets"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	// SizeBytes bounds the rendered-image cache of the HTTP server.
	SizeBytes int64 `mapstructure:"size_bytes"`
}

type RenderConfig struct {
	MaxPixels    int64 `mapstructure:"max_pixels"`
	MaxDimension int   `mapstructure:"max_dimension"`
	// Workers bounds batch concurrency. 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

// Limits returns the canvas limits for the compositor.
func (r RenderConfig) Limits() imaging.Limits {
	return imaging.Limits{MaxDimension: r.MaxDimension, MaxPixels: r.MaxPixels}
}

type HTTPConfig struct {
	// Addr enables the HTTP image server when set, e.g. ":8080".
	Addr string `mapstructure:"addr"`
	// Root is the directory file sources are read from.
	Root string `mapstructure:"root"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// Enabled reports whether an object-storage source is configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

// PresetConfig is the file form of a named render configuration.
type PresetConfig struct {
	Width      int      `mapstructure:"width"`
	Height     int      `mapstructure:"height"`
	Fit        string   `mapstructure:"fit"`
	AnchorX    string   `mapstructure:"anchor_x"`
	AnchorY    string   `mapstructure:"anchor_y"`
	Background string   `mapstructure:"background"`
	MainColor  bool     `mapstructure:"main_color_background"`
	Format     string   `mapstructure:"format"`
	Quality    *int     `mapstructure:"quality"`
	Interlace  bool     `mapstructure:"interlace"`
	Filters    []string `mapstructure:"filters"`
	AutoCrop   string   `mapstructure:"auto_crop"`
}

// RenderConfig converts the preset into a render.Config.
func (p PresetConfig) RenderConfig() (render.Config, error) {
	fit, err := geometry.ParseFitMode(p.Fit)
	if err != nil {
		return render.Config{}, err
	}
	anchor, err := geometry.ParseAnchor(p.AnchorX, p.AnchorY)
	if err != nil {
		return render.Config{}, err
	}
	bg, err := imaging.ParseBackground(p.Background)
	if err != nil {
		return render.Config{}, err
	}
	filters, err := filter.ParseSpecs(p.Filters)
	if err != nil {
		return render.Config{}, err
	}

	opts := []render.Option{
		render.WithSize(p.Width, p.Height),
		render.WithFit(fit),
		render.WithAnchor(anchor),
		render.WithBackground(bg),
		render.WithFilters(filters...),
		render.WithInterlace(p.Interlace),
	}
	if p.MainColor {
		opts = append(opts, render.WithMainColorBackground())
	}
	if p.Format != "" {
		f, err := codec.ParseFormat(p.Format)
		if err != nil {
			return render.Config{}, err
		}
		opts = append(opts, render.WithFormat(f))
	}
	if p.Quality != nil {
		opts = append(opts, render.WithQuality(*p.Quality))
	}
	if p.AutoCrop != "" {
		mode, err := imaging.ParseAutoCropMode(p.AutoCrop)
		if err != nil {
			return render.Config{}, err
		}
		opts = append(opts, render.WithAutoCrop(mode, imaging.AutoCropOptions{}))
	}

	cfg := render.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return render.Config{}, err
	}
	return cfg, nil
}

// RenderPresets converts every preset, failing on the first invalid one.
func (c *Config) RenderPresets() (map[string]render.Config, error) {
	out := make(map[string]render.Config, len(c.Presets))
	for name, p := range c.Presets {
		cfg, err := p.RenderConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "preset %q", name)
		}
		out[name] = cfg
	}
	return out, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return errors.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Cache.SizeBytes < 0 {
		return errors.New("cache.size_bytes must not be negative")
	}
	if c.Render.MaxPixels < 0 || c.Render.MaxDimension < 0 {
		return errors.New("render limits must not be negative")
	}
	if c.Render.Workers < 0 {
		return errors.New("render.workers must not be negative")
	}
	if c.Minio.Enabled() && c.Minio.Bucket == "" {
		return errors.New("minio.bucket is required when minio.endpoint is set")
	}
	if _, err := c.RenderPresets(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.size_bytes", 64<<20)
	v.SetDefault("render.max_pixels", imaging.DefaultLimits.MaxPixels)
	v.SetDefault("render.max_dimension", imaging.DefaultLimits.MaxDimension)
	v.SetDefault("render.workers", 0)
	v.SetDefault("http.addr", "")
	v.SetDefault("http.root", ".")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.secure", true)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}
