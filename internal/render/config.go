package render

import (
	"github.com/pkg/errors"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid render config")

// QualityDefault selects the format's default quality.
const QualityDefault = -1

// CropMode selects how Crop is interpreted.
type CropMode int

const (
	CropNone CropMode = iota
	// CropPixels uses Crop.Rect as a pixel region.
	CropPixels
	// CropPercent uses Crop.X, Y, Width and Height as percentages of the source.
	CropPercent
	// CropAuto trims a uniform border found by imaging.AutoCrop.
	CropAuto
)

// Crop describes the region of the source to render.
type Crop struct {
	Mode CropMode

	Rect imaging.Rect

	X, Y, Width, Height float64

	Auto        imaging.AutoCropMode
	AutoOptions imaging.AutoCropOptions
}

// Config is an immutable description of one render. Build it with NewConfig;
// the zero value renders the source unchanged except that Quality 0 is used.
type Config struct {
	Width  int
	Height int
	Fit    geometry.FitMode
	Anchor geometry.Anchor

	Background imaging.Background
	// MainColorBackground replaces Background with the source's average color.
	MainColorBackground bool

	Crop    Crop
	Filters []filter.Spec

	// Format is the output format. Empty keeps the source format.
	Format codec.Format
	// Quality is 0..100, or QualityDefault.
	Quality int
	// Interlace requests progressive output. Go's encoders write baseline
	// images only, so the flag is recorded and reported but has no effect.
	Interlace bool
}

// Option configures a Config.
type Option func(*Config)

// NewConfig returns a Config with a white background, contain fit, centered
// anchor and per-format default quality, then applies opts in order.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Fit:        geometry.FitContain,
		Anchor:     geometry.Center,
		Background: imaging.White,
		Quality:    QualityDefault,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Filters = append([]filter.Spec(nil), cfg.Filters...)
	return cfg
}

// With returns a copy of c with opts applied.
func (c Config) With(opts ...Option) Config {
	c.Filters = append([]filter.Spec(nil), c.Filters...)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithSize(width, height int) Option {
	return func(c *Config) { c.Width, c.Height = width, height }
}

func WithWidth(width int) Option {
	return func(c *Config) { c.Width = width }
}

func WithHeight(height int) Option {
	return func(c *Config) { c.Height = height }
}

func WithFit(fit geometry.FitMode) Option {
	return func(c *Config) { c.Fit = fit }
}

func WithAnchor(anchor geometry.Anchor) Option {
	return func(c *Config) { c.Anchor = anchor }
}

func WithBackground(bg imaging.Background) Option {
	return func(c *Config) {
		c.Background = bg
		c.MainColorBackground = false
	}
}

// WithMainColorBackground fills the canvas with the source's average color.
func WithMainColorBackground() Option {
	return func(c *Config) { c.MainColorBackground = true }
}

// WithCrop renders only r, clamped to the source.
func WithCrop(r imaging.Rect) Option {
	return func(c *Config) { c.Crop = Crop{Mode: CropPixels, Rect: r} }
}

// WithCropPercent renders a region given in percent of the source size.
func WithCropPercent(x, y, width, height float64) Option {
	return func(c *Config) {
		c.Crop = Crop{Mode: CropPercent, X: x, Y: y, Width: width, Height: height}
	}
}

// WithAutoCrop trims a uniform border before rendering.
func WithAutoCrop(mode imaging.AutoCropMode, opts imaging.AutoCropOptions) Option {
	return func(c *Config) {
		c.Crop = Crop{Mode: CropAuto, Auto: mode, AutoOptions: opts}
	}
}

// WithFilters appends filters to the pipeline.
func WithFilters(specs ...filter.Spec) Option {
	return func(c *Config) { c.Filters = append(c.Filters, specs...) }
}

func WithFormat(f codec.Format) Option {
	return func(c *Config) { c.Format = f }
}

func WithQuality(q int) Option {
	return func(c *Config) { c.Quality = q }
}

func WithInterlace(on bool) Option {
	return func(c *Config) { c.Interlace = on }
}

// Validate checks the values a render cannot recover from.
func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative size %dx%d", c.Width, c.Height)
	}
	if c.Format != "" && !c.Format.Valid() {
		return errors.Wrapf(codec.ErrUnsupportedFormat, "%q", string(c.Format))
	}
	if c.Quality != QualityDefault && (c.Quality < 0 || c.Quality > 100) {
		return errors.Wrapf(ErrInvalidConfig, "quality %d outside 0..100", c.Quality)
	}
	switch c.Crop.Mode {
	case CropNone, CropPixels, CropPercent, CropAuto:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown crop mode %d", int(c.Crop.Mode))
	}
	return nil
}
