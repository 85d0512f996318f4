package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Background is the color a canvas is filled with before content is placed.
//
// Alpha is opacity in the range 0..1:
//   - 1 = fully opaque; content is blended over the fill
//   - below 1 = translucent; the canvas keeps an alpha channel and content
//     pixels replace the fill, alpha included
type Background struct {
	R     uint8   `json:"r"`
	G     uint8   `json:"g"`
	B     uint8   `json:"b"`
	Alpha float64 `json:"alpha"`
}

// White is the default canvas background.
var White = Opaque(255, 255, 255)

// Opaque returns a fully opaque background.
func Opaque(r, g, b uint8) Background {
	return Background{R: r, G: g, B: b, Alpha: 1}
}

// Translucent returns a background with the given opacity, clamped to 0..1.
func Translucent(r, g, b uint8, alpha float64) Background {
	if math.IsNaN(alpha) || alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return Background{R: r, G: g, B: b, Alpha: alpha}
}

// Transparent returns a fully transparent white background.
func Transparent() Background {
	return Translucent(255, 255, 255, 0)
}

// IsOpaque reports whether the background has no transparency.
func (b Background) IsOpaque() bool {
	return b.Alpha >= 1
}

// Opaque returns b with alpha forced to 1. Formats without an alpha channel
// must composite onto an opaque background.
func (b Background) Opaque() Background {
	b.Alpha = 1
	return b
}

// NRGBA returns the fill color.
func (b Background) NRGBA() color.NRGBA {
	a := Translucent(b.R, b.G, b.B, b.Alpha).Alpha
	return color.NRGBA{R: b.R, G: b.G, B: b.B, A: uint8(math.Floor(a*255 + 0.5))}
}

// Hex returns "#RRGGBB", or "#RRGGBBAA" for translucent backgrounds.
func (b Background) Hex() string {
	if b.IsOpaque() {
		return fmt.Sprintf("#%02X%02X%02X", b.R, b.G, b.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", b.R, b.G, b.B, b.NRGBA().A)
}

func (b Background) String() string {
	return b.Hex()
}

// ParseBackground parses a background color string.
//
// Accepted forms:
//   - "" or "white": opaque white
//   - "transparent": transparent white
//   - "#rgb" or "#rrggbb" (leading '#' optional): opaque color
//   - "#rrggbbaa": color with 8-bit opacity
func ParseBackground(s string) (Background, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "white":
		return White, nil
	case "transparent":
		return Transparent(), nil
	}

	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3, 6:
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return Background{}, errors.Wrapf(err, "invalid background %q", s)
		}
		r, g, b := c.RGB255()
		return Opaque(r, g, b), nil
	case 8:
		c, err := colorful.Hex("#" + hex[:6])
		if err != nil {
			return Background{}, errors.Wrapf(err, "invalid background %q", s)
		}
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Background{}, errors.Wrapf(err, "invalid background alpha %q", s)
		}
		r, g, b := c.RGB255()
		return Translucent(r, g, b, float64(a)/255), nil
	default:
		return Background{}, errors.Errorf("invalid background %q: want #rgb, #rrggbb or #rrggbbaa", s)
	}
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB  RGBColor  `json:"rgb"`  // RGB components
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation
}

func newColorResult(c color.NRGBA) *ColorResult {
	h, s, l := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGB:  RGBColor{R: c.R, G: c.G, B: c.B},
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL:  HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
	}
}

// MainColor returns the average color of img.
//
// The image is area-resampled down to a single pixel, so every source pixel
// contributes in proportion to its coverage. Transparent pixels contribute
// to the alpha of the result but not to its color.
func MainColor(img image.Image) (*ColorResult, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Wrap(ErrResampleFailed, "empty image")
	}
	px, err := resample(img, 1, 1)
	if err != nil {
		return nil, err
	}
	return newColorResult(px.NRGBAAt(0, 0)), nil
}

// MainColorBackground returns the average color of img as an opaque background.
func MainColorBackground(img image.Image) (Background, error) {
	c, err := MainColor(img)
	if err != nil {
		return Background{}, err
	}
	return Opaque(c.RGB.R, c.RGB.G, c.RGB.B), nil
}

// toNRGBA converts any color to non-premultiplied 8-bit RGBA.
func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// cloneNRGBA returns img as an *image.NRGBA with bounds starting at (0,0).
func cloneNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
