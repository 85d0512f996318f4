// Package filter implements the post-processing filters applied to a rendered
// canvas.
//
// A filter is described by a Spec: a Kind tag plus an optional Param, which is a
// closed variant holding nothing, an int, a float or a list of ints. The Service type applies a
// Spec to an *image.NRGBA and returns a new image; it keeps no state, so a single
// Service may be shared by concurrent renders.
//
// # Supported Filters
//
// The kinds and their parameters follow the GD filter set:
//
//   - negate, grayscale, edgedetect, emboss, meanremoval, selectiveblur: no parameter
//   - brightness: int level in -255..255
//   - contrast: int level in -100..100 (negative raises contrast)
//   - gaussianblur: int pass count, default 1
//   - smooth: float centre weight of a normalized 3x3 kernel
//   - pixelate: int block size, default 1
//   - sepia: float percentage in 0..100, default 100
//   - colorize: "r,g,b" or "r,g,b,alpha", offsets in -255..255, alpha in 0..127
//   - scatter: "sub,plus" pixel displacement range, sub below plus; "0,0" is a no-op
//
// Color and tone filters are built on github.com/disintegration/gift; the
// neighborhood effects come from github.com/anthonynsimon/bild.
package filter
