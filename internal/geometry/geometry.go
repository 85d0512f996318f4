package geometry

import (
	"fmt"
	"math"
	"strings"
)

// FitMode governs how a two-dimensional target box constrains content scaling.
type FitMode int

const (
	// FitContain scales the content to fit entirely inside the box (letterboxing).
	FitContain FitMode = iota
	// FitCover scales the content to cover the whole box, clipping the overflow.
	FitCover
	// FitStretch scales the content to the box exactly, ignoring aspect ratio.
	FitStretch
)

// String returns the lower-case name of the fit mode.
func (f FitMode) String() string {
	switch f {
	case FitContain:
		return "contain"
	case FitCover:
		return "cover"
	case FitStretch:
		return "stretch"
	default:
		return fmt.Sprintf("FitMode(%d)", int(f))
	}
}

// ParseFitMode parses "stretch", "contain" or "cover" (case-insensitive).
// An empty string yields FitContain, the default mode.
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain":
		return FitContain, nil
	case "cover":
		return FitCover, nil
	case "stretch":
		return FitStretch, nil
	default:
		return FitContain, fmt.Errorf("unknown fit mode: %q", s)
	}
}

// Horizontal is the horizontal placement of content inside the canvas.
type Horizontal int

const (
	HCenter Horizontal = iota
	Left
	Right
)

// Vertical is the vertical placement of content inside the canvas.
type Vertical int

const (
	VCenter Vertical = iota
	Top
	Bottom
)

// Anchor aligns content within the canvas when the two differ in size.
// The zero value is center/center.
type Anchor struct {
	Horizontal Horizontal
	Vertical   Vertical
}

// Center is the center/center anchor.
var Center = Anchor{Horizontal: HCenter, Vertical: VCenter}

// String returns the anchor as "x-y", e.g. "left-top".
func (a Anchor) String() string {
	x := "center"
	switch a.Horizontal {
	case Left:
		x = "left"
	case Right:
		x = "right"
	}
	y := "center"
	switch a.Vertical {
	case Top:
		y = "top"
	case Bottom:
		y = "bottom"
	}
	return x + "-" + y
}

// ParseAnchor parses a horizontal name (left|center|right) and a vertical name
// (top|center|bottom). Empty strings default to center.
func ParseAnchor(x, y string) (Anchor, error) {
	var a Anchor
	switch strings.ToLower(strings.TrimSpace(x)) {
	case "", "center":
		a.Horizontal = HCenter
	case "left":
		a.Horizontal = Left
	case "right":
		a.Horizontal = Right
	default:
		return Center, fmt.Errorf("unknown horizontal position: %q", x)
	}
	switch strings.ToLower(strings.TrimSpace(y)) {
	case "", "center":
		a.Vertical = VCenter
	case "top":
		a.Vertical = Top
	case "bottom":
		a.Vertical = Bottom
	default:
		return Center, fmt.Errorf("unknown vertical position: %q", y)
	}
	return a, nil
}

// Result fully determines canvas allocation and content placement for a render.
type Result struct {
	CanvasWidth   int `json:"canvas_width"`
	CanvasHeight  int `json:"canvas_height"`
	ContentWidth  int `json:"content_width"`
	ContentHeight int `json:"content_height"`
	OffsetX       int `json:"offset_x"`
	OffsetY       int `json:"offset_y"`
}

// Resolve computes output geometry for a source of srcW x srcH pixels.
//
// reqW and reqH are the requested thumbnail size; 0 leaves that axis
// unconstrained and negative values are treated as 0. srcW and srcH must be
// positive; callers reject empty sources before resolving.
func Resolve(srcW, srcH, reqW, reqH int, fit FitMode, anchor Anchor) Result {
	if reqW < 0 {
		reqW = 0
	}
	if reqH < 0 {
		reqH = 0
	}

	sw, sh := float64(srcW), float64(srcH)
	bw, bh := float64(reqW), float64(reqH)

	var canvasW, canvasH, contentW, contentH float64
	placed := false

	switch {
	case (reqW > 0) != (reqH > 0):
		if reqW > 0 {
			bh = sh * (bw / sw)
		} else {
			bw = sw * (bh / sh)
		}
		canvasW, canvasH = bw, bh
		contentW, contentH = bw, bh

	case reqW > 0 && reqH > 0 && fit == FitStretch:
		canvasW, canvasH = bw, bh
		contentW, contentH = bw, bh

	case reqW > 0 && reqH > 0:
		canvasW, canvasH = bw, bh
		contentW, contentH = fitBox(sw, sh, bw, bh, fit)
		placed = true

	default:
		canvasW, canvasH = sw, sh
		contentW, contentH = sw, sh
	}

	r := Result{
		CanvasWidth:   dimension(canvasW),
		CanvasHeight:  dimension(canvasH),
		ContentWidth:  dimension(contentW),
		ContentHeight: dimension(contentH),
	}
	if placed {
		r.OffsetX, r.OffsetY = Offset(r.CanvasWidth, r.CanvasHeight, r.ContentWidth, r.ContentHeight, anchor)
	}
	return r
}

// fitBox scales (sw, sh) into the (bw, bh) box. Width-first scaling is
// preferred whenever it satisfies the mode's constraint.
func fitBox(sw, sh, bw, bh float64, fit FitMode) (float64, float64) {
	// width-first: content width matches the box width
	wfW, wfH := bw, sh*bw/sw
	// height-first: content height matches the box height
	hfW, hfH := sw*bh/sh, bh

	switch fit {
	case FitCover:
		if wfW >= bw && wfH >= bh {
			return wfW, wfH
		}
		return hfW, hfH
	default:
		if wfW <= bw && wfH <= bh {
			return wfW, wfH
		}
		return hfW, hfH
	}
}

// Offset places content of contentW x contentH inside a canvasW x canvasH
// canvas according to anchor. Offsets are negative when the content overflows.
func Offset(canvasW, canvasH, contentW, contentH int, anchor Anchor) (x, y int) {
	switch anchor.Horizontal {
	case Left:
		x = 0
	case Right:
		x = canvasW - contentW
	default:
		x = (canvasW - contentW) / 2
	}
	switch anchor.Vertical {
	case Top:
		y = 0
	case Bottom:
		y = canvasH - contentH
	default:
		y = (canvasH - contentH) / 2
	}
	return x, y
}

// dimension rounds half-up and never returns less than one pixel, so an
// extreme aspect ratio cannot collapse an axis to zero.
func dimension(v float64) int {
	d := int(math.Floor(v + 0.5))
	if d < 1 {
		return 1
	}
	return d
}
