package imageserve

import (
	"github.com/pierrre/imageserver"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/logging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

// Handler renders source images according to request params.
type Handler struct {
	Renderer *render.Renderer
	// Presets resolves the "preset" param. nil disables presets.
	Presets *render.PresetRegistry
	Logger  *zap.Logger
}

// NewHandler returns a Handler using renderer and presets.
func NewHandler(renderer *render.Renderer, presets *render.PresetRegistry, logger *zap.Logger) *Handler {
	if renderer == nil {
		renderer = render.NewRenderer(render.WithLogger(logger))
	}
	return &Handler{Renderer: renderer, Presets: presets, Logger: logging.OrNop(logger)}
}

// Handle implements imageserver.Handler.
//
// Bad params are reported as *imageserver.ParamError and undecodable sources
// as *imageserver.ImageError. Anything else is an internal failure.
func (h *Handler) Handle(im *imageserver.Image, params imageserver.Params) (*imageserver.Image, error) {
	cfg, err := ParseConfig(params, h.Presets)
	if err != nil {
		return nil, err
	}

	src, srcFormat, err := codec.Decode(im.Data)
	if err != nil {
		return nil, &imageserver.ImageError{Message: err.Error()}
	}

	out, err := h.Renderer.Render(src, srcFormat, cfg)
	if err != nil {
		return nil, h.mapError(err, params)
	}
	return &imageserver.Image{Format: string(out.Format), Data: out.Data}, nil
}

func (h *Handler) mapError(err error, params imageserver.Params) error {
	switch {
	case errors.Is(err, imaging.ErrInvalidCrop):
		if _, ok := params[ParamCropAuto]; ok {
			return paramError(ParamCropAuto, err.Error())
		}
		return paramError(ParamCropW, err.Error())
	case errors.Is(err, imaging.ErrAllocationFailed):
		return paramError(ParamWidth, err.Error())
	case errors.Is(err, imaging.ErrFilterFailed):
		return paramError(ParamFilters, err.Error())
	case errors.Is(err, render.ErrInvalidConfig):
		return paramError("config", err.Error())
	}
	h.logger().Error("render failed", zap.Any("params", params), zap.Error(err))
	return err
}

func (h *Handler) logger() *zap.Logger {
	return logging.OrNop(h.Logger)
}
