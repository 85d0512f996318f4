// Package render turns one source image and a Config into one encoded image.
//
// A render resolves the crop region (pixels, percent or auto-crop), resolves
// geometry against the cropped size, picks the background (forced opaque for
// JPEG and BMP), composites, runs filters and encodes:
//
//	cfg := render.NewConfig(
//	    render.WithSize(500, 500),
//	    render.WithFit(geometry.FitCover),
//	    render.WithFormat(codec.WebP),
//	)
//	out, err := render.NewRenderer(render.WithLogger(logger)).RenderFile("in.jpg", "out.webp", cfg, false)
//
// Configs are values. Options build a new one and never modify a Config that
// is already in use, so a single Config may be shared by concurrent renders.
// PresetRegistry stores named Configs and Batch renders many files in
// parallel.
package render
