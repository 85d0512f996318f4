package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
)

var (
	// ErrInvalidCrop is returned when a crop region collapses to zero area
	// after clamping to the source bounds.
	ErrInvalidCrop = errors.New("invalid crop region")

	// ErrAllocationFailed is returned when the canvas cannot be allocated.
	ErrAllocationFailed = errors.New("canvas allocation failed")

	// ErrResampleFailed is returned when the source cannot be scaled to the
	// content size.
	ErrResampleFailed = errors.New("resample failed")

	// ErrFilterFailed matches every *FilterError.
	ErrFilterFailed = errors.New("filter failed")
)

// FilterError reports which filter aborted a composite.
type FilterError struct {
	Kind filter.Kind
	Err  error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFilterFailed, e.Kind, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFilterFailed) match any filter failure.
func (e *FilterError) Is(target error) bool { return target == ErrFilterFailed }

// Limits bounds the buffers a single composite may allocate. Both the canvas
// and the scaled content are checked; in cover mode the content can be far
// larger than the canvas it is clipped to.
type Limits struct {
	// MaxDimension caps buffer width and height individually.
	MaxDimension int

	// MaxPixels caps buffer width*height.
	MaxPixels int64
}

// DefaultLimits keeps an RGBA canvas under roughly 256 MB.
var DefaultLimits = Limits{
	MaxDimension: 32768,
	MaxPixels:    64 * 1024 * 1024,
}

func (l Limits) check(what string, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrAllocationFailed, "%s bounds invalid (%d x %d)", what, width, height)
	}
	if l.MaxDimension > 0 && (width > l.MaxDimension || height > l.MaxDimension) {
		return errors.Wrapf(ErrAllocationFailed, "%s dimension exceeds limit (%d x %d)", what, width, height)
	}
	pixels := int64(width) * int64(height)
	if l.MaxPixels > 0 && pixels > l.MaxPixels {
		return errors.Wrapf(ErrAllocationFailed, "%s pixel count %d exceeds limit %d", what, pixels, l.MaxPixels)
	}
	return nil
}

// Compositor allocates a canvas, fills its background, blits scaled source
// content into it and runs the filter pipeline.
//
// A Compositor holds no mutable state. One value may serve any number of
// goroutines as long as its Applier does too.
type Compositor struct {
	Limits  Limits
	Applier filter.Applier
}

// NewCompositor returns a Compositor with DefaultLimits and the default
// filter service.
func NewCompositor() *Compositor {
	return &Compositor{
		Limits:  DefaultLimits,
		Applier: filter.NewService(),
	}
}

// Composite renders src into a new canvas described by geo.
//
// Parameters:
//   - src: The source image. It is never modified.
//   - crop: Optional region of src to use instead of the whole image. The region
//     is clamped to the source bounds; a region with no area after clamping
//     fails with ErrInvalidCrop. geo must already be resolved against the
//     cropped size.
//   - geo: Canvas size, content size and content offset.
//   - bg: Canvas background. A translucent background keeps the canvas alpha and
//     copies source pixels onto it, alpha included. An opaque background
//     blends the source over it, so the canvas stays fully opaque.
//   - filters: Applied in order to the finished canvas.
//
// Returns:
//   - *image.NRGBA: The finished canvas, ready for encoding.
//   - error: ErrInvalidCrop, ErrAllocationFailed, ErrResampleFailed or a
//     *FilterError. On error no partial canvas is returned.
func (c *Compositor) Composite(src image.Image, crop *Rect, geo geometry.Result, bg Background, filters []filter.Spec) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errors.Wrap(ErrResampleFailed, "empty source image")
	}

	if crop != nil {
		cropped, err := cropImage(src, *crop)
		if err != nil {
			return nil, err
		}
		src = cropped
	}

	if err := c.Limits.check("canvas", geo.CanvasWidth, geo.CanvasHeight); err != nil {
		return nil, err
	}
	// Non-positive content sizes are a resample failure, not an allocation one.
	if geo.ContentWidth > 0 && geo.ContentHeight > 0 {
		if err := c.Limits.check("content", geo.ContentWidth, geo.ContentHeight); err != nil {
			return nil, err
		}
	}
	canvas := imaging.New(geo.CanvasWidth, geo.CanvasHeight, bg.NRGBA())

	content, err := resample(src, geo.ContentWidth, geo.ContentHeight)
	if err != nil {
		return nil, err
	}

	at := image.Pt(geo.OffsetX, geo.OffsetY)
	if bg.IsOpaque() {
		canvas = imaging.Overlay(canvas, content, at, 1.0)
	} else {
		canvas = imaging.Paste(canvas, content, at)
	}

	applier := c.Applier
	if applier == nil {
		applier = filter.NewService()
	}
	for _, spec := range filters {
		out, err := applier.Apply(canvas, spec)
		if err != nil {
			return nil, &FilterError{Kind: spec.Kind, Err: err}
		}
		if out == nil {
			return nil, &FilterError{Kind: spec.Kind, Err: errors.New("filter returned no image")}
		}
		canvas = out
	}

	return canvas, nil
}

// Composite runs a Compositor with DefaultLimits and the given applier. A nil
// applier selects the default filter service.
func Composite(src image.Image, crop *Rect, geo geometry.Result, bg Background, filters []filter.Spec, applier filter.Applier) (*image.NRGBA, error) {
	c := NewCompositor()
	if applier != nil {
		c.Applier = applier
	}
	return c.Composite(src, crop, geo, bg, filters)
}

func cropImage(src image.Image, r Rect) (image.Image, error) {
	b := src.Bounds()
	clamped := ClampRect(r, b.Dx(), b.Dy())
	if clamped.Empty() {
		return nil, errors.Wrapf(ErrInvalidCrop, "%s on %dx%d source", r, b.Dx(), b.Dy())
	}
	return imaging.Crop(src, clamped.Rectangle().Add(b.Min)), nil
}

// resample scales src with a box filter, which averages every source pixel
// under each destination pixel when shrinking.
func resample(src image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrResampleFailed, "content size %dx%d", width, height)
	}
	out := imaging.Resize(src, width, height, imaging.Box)
	if out.Bounds().Dx() != width || out.Bounds().Dy() != height {
		return nil, errors.Wrapf(ErrResampleFailed, "got %dx%d, want %dx%d",
			out.Bounds().Dx(), out.Bounds().Dy(), width, height)
	}
	return out, nil
}

// Layout is the channel layout of a raster.
type Layout int

const (
	LayoutRGB Layout = iota
	LayoutRGBA
)

func (l Layout) String() string {
	if l == LayoutRGBA {
		return "rgba"
	}
	return "rgb"
}

// LayoutOf reports RGBA when img has at least one pixel that is not fully opaque.
func LayoutOf(img image.Image) Layout {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return LayoutRGB
		}
		return LayoutRGBA
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return LayoutRGBA
			}
		}
	}
	return LayoutRGB
}
