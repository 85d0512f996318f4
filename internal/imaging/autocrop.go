package imaging

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// AutoCropMode selects which border color AutoCrop trims.
type AutoCropMode int

const (
	// AutoCropDefault trims transparency when the corners are transparent,
	// otherwise behaves like AutoCropSides.
	AutoCropDefault AutoCropMode = iota
	AutoCropTransparent
	AutoCropBlack
	AutoCropWhite
	// AutoCropSides trims the color found in the image corners.
	AutoCropSides
	// AutoCropThreshold trims pixels within a tolerance of a given color.
	AutoCropThreshold
)

var autoCropNames = map[AutoCropMode]string{
	AutoCropDefault:     "default",
	AutoCropTransparent: "transparent",
	AutoCropBlack:       "black",
	AutoCropWhite:       "white",
	AutoCropSides:       "sides",
	AutoCropThreshold:   "threshold",
}

func (m AutoCropMode) String() string {
	if s, ok := autoCropNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseAutoCropMode parses a mode name. Empty selects AutoCropDefault.
func ParseAutoCropMode(s string) (AutoCropMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AutoCropDefault, nil
	}
	for m, name := range autoCropNames {
		if name == s {
			return m, nil
		}
	}
	return AutoCropDefault, errors.Errorf("unknown auto-crop mode: %s", s)
}

// AutoCropOptions configures AutoCropThreshold.
type AutoCropOptions struct {
	// Color is the border color to trim.
	Color color.Color

	// Threshold is the tolerance in percent (0..100) of the largest possible
	// RGB distance. 0 trims only exact matches.
	Threshold float64
}

// AutoCrop finds the smallest region of img that excludes a uniform border.
//
// The returned Rect is relative to the image's top-left corner and can be
// passed straight to Composite as a crop. An image made entirely of border
// pixels has nothing to keep and fails with ErrInvalidCrop.
func AutoCrop(img image.Image, mode AutoCropMode, opts AutoCropOptions) (Rect, error) {
	if img == nil || img.Bounds().Empty() {
		return Rect{}, errors.Wrap(ErrInvalidCrop, "empty image")
	}
	src := cloneNRGBA(img)

	isBorder, err := borderMatcher(src, mode, opts)
	if err != nil {
		return Rect{}, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	rowIsBorder := func(y int) bool {
		for x := 0; x < w; x++ {
			if !isBorder(src.NRGBAAt(x, y)) {
				return false
			}
		}
		return true
	}
	colIsBorder := func(x, top, bottom int) bool {
		for y := top; y < bottom; y++ {
			if !isBorder(src.NRGBAAt(x, y)) {
				return false
			}
		}
		return true
	}

	top := 0
	for top < h && rowIsBorder(top) {
		top++
	}
	if top == h {
		return Rect{}, errors.Wrapf(ErrInvalidCrop, "auto-crop %s: image is entirely border", mode)
	}
	bottom := h
	for bottom > top && rowIsBorder(bottom-1) {
		bottom--
	}
	left := 0
	for left < w && colIsBorder(left, top, bottom) {
		left++
	}
	right := w
	for right > left && colIsBorder(right-1, top, bottom) {
		right--
	}

	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}, nil
}

func borderMatcher(img *image.NRGBA, mode AutoCropMode, opts AutoCropOptions) (func(color.NRGBA) bool, error) {
	if mode == AutoCropDefault {
		if cornerColor(img).A == 0 {
			mode = AutoCropTransparent
		} else {
			mode = AutoCropSides
		}
	}

	switch mode {
	case AutoCropTransparent:
		return func(c color.NRGBA) bool { return c.A == 0 }, nil
	case AutoCropBlack:
		return func(c color.NRGBA) bool { return c.A == 255 && c.R == 0 && c.G == 0 && c.B == 0 }, nil
	case AutoCropWhite:
		return func(c color.NRGBA) bool { return c.A == 255 && c.R == 255 && c.G == 255 && c.B == 255 }, nil
	case AutoCropSides:
		ref := cornerColor(img)
		return func(c color.NRGBA) bool { return colorsMatch(c, ref, 0) }, nil
	case AutoCropThreshold:
		if opts.Color == nil {
			return nil, errors.Wrap(ErrInvalidCrop, "auto-crop threshold mode requires a color")
		}
		if opts.Threshold < 0 || opts.Threshold > 100 {
			return nil, errors.Wrapf(ErrInvalidCrop, "auto-crop threshold %.2f out of range 0..100", opts.Threshold)
		}
		ref := toNRGBA(opts.Color)
		tol := opts.Threshold / 100
		return func(c color.NRGBA) bool { return colorsMatch(c, ref, tol) }, nil
	default:
		return nil, errors.Wrapf(ErrInvalidCrop, "unknown auto-crop mode: %d", int(mode))
	}
}

// cornerColor picks the color shared by the most image corners. Ties go to
// the top-left corner.
func cornerColor(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	corners := []color.NRGBA{
		img.NRGBAAt(b.Min.X, b.Min.Y),
		img.NRGBAAt(b.Max.X-1, b.Min.Y),
		img.NRGBAAt(b.Min.X, b.Max.Y-1),
		img.NRGBAAt(b.Max.X-1, b.Max.Y-1),
	}
	best, bestCount := corners[0], 0
	for _, c := range corners {
		n := 0
		for _, o := range corners {
			if o == c {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// colorsMatch compares two colors with tol given as a fraction of the largest
// RGB distance. Fully transparent pixels match each other regardless of color.
func colorsMatch(c, ref color.NRGBA, tol float64) bool {
	if c.A == 0 || ref.A == 0 {
		return c.A == ref.A
	}
	if tol == 0 {
		return c == ref
	}
	if math.Abs(float64(c.A)-float64(ref.A))/255 > tol {
		return false
	}
	a := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	r := colorful.Color{R: float64(ref.R) / 255, G: float64(ref.G) / 255, B: float64(ref.B) / 255}
	return a.DistanceRgb(r)/math.Sqrt(3) <= tol
}
