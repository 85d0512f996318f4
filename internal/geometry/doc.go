// Package geometry reconciles a source image size with requested output
// constraints.
//
// Resolve maps (source width/height, requested width/height, fit mode, anchor)
// to a Result describing the canvas to allocate, the size the source content is
// scaled to, and where that content is placed on the canvas. It performs no I/O
// and holds no state, so it is safe to call from any number of goroutines.
//
// # Resolution Cases
//
// Cases are evaluated in priority order:
//
//  1. Exactly one requested axis is non-zero: the other axis is derived from the
//     source aspect ratio. Canvas and content are the same size.
//  2. Both axes requested with FitStretch: canvas and content are exactly the
//     requested size and the source aspect ratio is discarded.
//  3. Both axes requested with FitContain or FitCover: the canvas is the requested
//     box and the content is the source scaled to fit inside (Contain) or to cover
//     (Cover) that box.
//  4. Neither axis requested: the source size is kept unchanged.
//
// # Rounding
//
// All dimension arithmetic is done in float64 and each of the four final
// dimensions is rounded once, half-up. Intermediate values are never truncated,
// so chained ratios do not accumulate off-by-one errors. A dimension never rounds
// below one pixel. Offsets are derived from
// the rounded dimensions with integer division, so a centered odd remainder
// favors the top-left (e.g. a 125px gap centers at 62).
package geometry
