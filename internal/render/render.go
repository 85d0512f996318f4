package render

import (
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/logging"
)

// Output is an encoded render.
type Output struct {
	Data     []byte          `json:"-"`
	Format   codec.Format    `json:"format"`
	MIME     string          `json:"mime_type"`
	Geometry geometry.Result `json:"geometry"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	// Crop is the source region that was rendered, nil for the whole source.
	Crop       *imaging.Rect      `json:"crop,omitempty"`
	Background imaging.Background `json:"background"`
	Quality    int                `json:"quality"`
}

// Renderer runs the resolve, composite and encode pipeline.
//
// A Renderer holds no per-render state and is safe for concurrent use.
type Renderer struct {
	logger     *zap.Logger
	compositor *imaging.Compositor
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the logger. nil disables logging.
func WithLogger(l *zap.Logger) RendererOption {
	return func(r *Renderer) { r.logger = logging.OrNop(l) }
}

// WithApplier replaces the filter service.
func WithApplier(a filter.Applier) RendererOption {
	return func(r *Renderer) { r.compositor.Applier = a }
}

// WithLimits bounds the canvas size.
func WithLimits(l imaging.Limits) RendererOption {
	return func(r *Renderer) { r.compositor.Limits = l }
}

// NewRenderer returns a Renderer with imaging.DefaultLimits, the default
// filter service and no logging.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		logger:     zap.NewNop(),
		compositor: imaging.NewCompositor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders src with the default Renderer.
func Render(src image.Image, srcFormat codec.Format, cfg Config) (*Output, error) {
	return NewRenderer().Render(src, srcFormat, cfg)
}

// RenderFile renders the image at src into dst with the default Renderer.
func RenderFile(src, dst string, cfg Config, override bool) (*Output, error) {
	return NewRenderer().RenderFile(src, dst, cfg, override)
}

// Render crops, resizes, composites, filters and encodes src.
//
// srcFormat is the format src was decoded from and is used when cfg.Format is
// empty. Formats without alpha (JPEG, BMP) always composite onto an opaque
// background regardless of cfg.Background.
//
// Errors wrap ErrInvalidConfig, codec.ErrUnsupportedFormat, the imaging
// composite errors or codec.ErrEncodeFailed.
func (r *Renderer) Render(src image.Image, srcFormat codec.Format, cfg Config) (*Output, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil || src.Bounds().Empty() {
		return nil, errors.Wrap(imaging.ErrResampleFailed, "empty source image")
	}

	format := cfg.Format
	if format == "" {
		format = srcFormat
	}
	if !format.Valid() {
		return nil, errors.Wrapf(codec.ErrUnsupportedFormat, "output format %q", string(format))
	}

	crop, err := resolveCrop(src, cfg.Crop)
	if err != nil {
		return nil, err
	}
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	if crop != nil {
		srcW, srcH = crop.Width, crop.Height
	}

	geo := geometry.Resolve(srcW, srcH, cfg.Width, cfg.Height, cfg.Fit, cfg.Anchor)

	bg := cfg.Background
	if cfg.MainColorBackground {
		if bg, err = imaging.MainColorBackground(src); err != nil {
			return nil, err
		}
	}
	if !format.SupportsAlpha() {
		bg = bg.Opaque()
	}

	canvas, err := r.compositor.Composite(src, crop, geo, bg, cfg.Filters)
	if err != nil {
		return nil, err
	}

	quality := cfg.Quality
	if quality == QualityDefault {
		quality = codec.DefaultQuality(format)
	}
	if cfg.Interlace {
		r.logger.Warn("interlaced output is not supported by the encoder, writing baseline image",
			zap.String("format", string(format)))
	}

	data, err := codec.EncodeBytes(canvas, format, quality)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("rendered image",
		zap.Int("src_width", srcW),
		zap.Int("src_height", srcH),
		zap.Int("canvas_width", geo.CanvasWidth),
		zap.Int("canvas_height", geo.CanvasHeight),
		zap.Int("content_width", geo.ContentWidth),
		zap.Int("content_height", geo.ContentHeight),
		zap.Int("offset_x", geo.OffsetX),
		zap.Int("offset_y", geo.OffsetY),
		zap.Stringer("fit", cfg.Fit),
		zap.Stringer("background", bg),
		zap.String("format", string(format)),
		zap.Int("quality", quality),
		zap.Int("filters", len(cfg.Filters)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Output{
		Data:       data,
		Format:     format,
		MIME:       format.MIME(),
		Geometry:   geo,
		Width:      geo.CanvasWidth,
		Height:     geo.CanvasHeight,
		Crop:       crop,
		Background: bg,
		Quality:    quality,
	}, nil
}

// RenderBytes decodes data and renders it.
func (r *Renderer) RenderBytes(data []byte, cfg Config) (*Output, error) {
	src, format, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return r.Render(src, format, cfg)
}

// RenderFile renders the image at src and writes it to dst.
//
// When cfg.Format is empty the output format follows dst's extension, falling
// back to the source format. With override false an existing dst is left
// untouched and codec.ErrDestinationExists is returned before any work is done.
func (r *Renderer) RenderFile(src, dst string, cfg Config, override bool) (*Output, error) {
	if !override {
		if _, err := os.Stat(dst); err == nil {
			return nil, errors.Wrapf(codec.ErrDestinationExists, "%s", dst)
		}
	}

	img, srcFormat, err := codec.DecodeFile(src)
	if err != nil {
		return nil, err
	}

	if cfg.Format == "" {
		if f, err := codec.ParseFormat(filepath.Ext(dst)); err == nil {
			cfg = cfg.With(WithFormat(f))
		}
	}

	out, err := r.Render(img, srcFormat, cfg)
	if err != nil {
		return nil, err
	}
	if err := codec.WriteFile(dst, out.Data, override); err != nil {
		return nil, err
	}

	r.logger.Info("wrote image", zap.String("src", src), zap.String("dst", dst),
		zap.Int("width", out.Width), zap.Int("height", out.Height))
	return out, nil
}

func resolveCrop(src image.Image, c Crop) (*imaging.Rect, error) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	var r imaging.Rect
	switch c.Mode {
	case CropNone:
		return nil, nil
	case CropPixels:
		r = imaging.ClampRect(c.Rect, w, h)
	case CropPercent:
		r = imaging.CropFromPercent(c.X, c.Y, c.Width, c.Height, w, h)
	case CropAuto:
		found, err := imaging.AutoCrop(src, c.Auto, c.AutoOptions)
		if err != nil {
			return nil, err
		}
		r = found
	}
	if r.Empty() {
		return nil, errors.Wrapf(imaging.ErrInvalidCrop, "crop %s on %dx%d source", r, w, h)
	}
	return &r, nil
}
