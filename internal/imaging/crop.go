package imaging

import (
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-render-mcp/internal/codec"
)

// Rect is a region in source-pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%d y:%d w:%d h:%d}", r.X, r.Y, r.Width, r.Height)
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ClampRect clips r to a width x height source. Out-of-range edges are moved
// inside the source rather than rejected, so {90,90,50,50} on a 100x100 source
// becomes {90,90,10,10}. A region entirely outside the source comes back empty.
func ClampRect(r Rect, width, height int) Rect {
	x0 := clampInt(r.X, 0, width)
	y0 := clampInt(r.Y, 0, height)
	x1 := clampInt(r.X+r.Width, 0, width)
	y1 := clampInt(r.Y+r.Height, 0, height)
	return Rect{X: x0, Y: y0, Width: max(x1-x0, 0), Height: max(y1-y0, 0)}
}

// CropFromPercent converts a region given in percentages of the source size
// to pixels. Each percentage is clamped to 0..100 before conversion.
func CropFromPercent(xPct, yPct, wPct, hPct float64, srcW, srcH int) Rect {
	pct := func(p float64, size int) int {
		p = math.Max(0, math.Min(100, p))
		return int(math.Floor(p*float64(size)/100 + 0.5))
	}
	return ClampRect(Rect{
		X:      pct(xPct, srcW),
		Y:      pct(yPct, srcH),
		Width:  pct(wPct, srcW),
		Height: pct(hPct, srcH),
	}, srcW, srcH)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CropResult contains the cropped image data
type CropResult struct {
	Region      Rect   `json:"region"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts a region from an image after clamping it to the image bounds
// and returns it PNG-encoded. A positive scale other than 1 resizes the result
// with the same box filter the compositor uses.
func Crop(img image.Image, region Rect, scale float64) (*CropResult, error) {
	cropped, err := cropImage(img, region)
	if err != nil {
		return nil, err
	}
	clamped := ClampRect(region, img.Bounds().Dx(), img.Bounds().Dy())

	out := imaging.Clone(cropped)
	if scale != 1.0 && scale > 0 {
		newWidth := max(int(math.Floor(float64(out.Bounds().Dx())*scale+0.5)), 1)
		newHeight := max(int(math.Floor(float64(out.Bounds().Dy())*scale+0.5)), 1)
		if out, err = resample(out, newWidth, newHeight); err != nil {
			return nil, err
		}
	}

	data, err := codec.EncodeBytes(out, codec.PNG, codec.DefaultQuality(codec.PNG))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cropped image")
	}

	return &CropResult{
		Region:      clamped,
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    codec.PNG.MIME(),
	}, nil
}

// QuadrantRect returns the named region of a width x height image.
func QuadrantRect(region string, w, h int) (Rect, error) {
	midX := w / 2
	midY := h / 2

	switch region {
	case "top-left":
		return Rect{0, 0, midX, midY}, nil
	case "top-right":
		return Rect{midX, 0, w - midX, midY}, nil
	case "bottom-left":
		return Rect{0, midY, midX, h - midY}, nil
	case "bottom-right":
		return Rect{midX, midY, w - midX, h - midY}, nil
	case "top-half":
		return Rect{0, 0, w, midY}, nil
	case "bottom-half":
		return Rect{0, midY, w, h - midY}, nil
	case "left-half":
		return Rect{0, 0, midX, h}, nil
	case "right-half":
		return Rect{midX, 0, w - midX, h}, nil
	case "center":
		// Center 50% of the image
		qW := w / 4
		qH := h / 4
		return Rect{qW, qH, w - 2*qW, h - 2*qH}, nil
	default:
		return Rect{}, errors.Errorf("unknown region: %s", region)
	}
}

// CropQuadrant extracts a named region from an image
func CropQuadrant(img image.Image, region string, scale float64) (*CropResult, error) {
	r, err := QuadrantRect(region, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return nil, err
	}
	return Crop(img, r, scale)
}
