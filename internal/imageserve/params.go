package imageserve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pierrre/imageserver"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

// Parameter names understood by ParseConfig and QueryParser.
const (
	ParamSource     = "source"
	ParamPreset     = "preset"
	ParamWidth      = "width"
	ParamHeight     = "height"
	ParamFit        = "fit"
	ParamAnchorX    = "anchor_x"
	ParamAnchorY    = "anchor_y"
	ParamBackground = "background"
	ParamFormat     = "format"
	ParamQuality    = "quality"
	ParamInterlace  = "interlace"
	ParamFilters    = "filters"
	ParamCropX      = "crop_x"
	ParamCropY      = "crop_y"
	ParamCropW      = "crop_w"
	ParamCropH      = "crop_h"
	ParamCropAuto   = "crop_auto"

	// Border color and tolerance (percent) for crop_auto=threshold.
	ParamCropAutoColor     = "crop_auto_color"
	ParamCropAutoThreshold = "crop_auto_threshold"
)

// backgroundMain selects the source's average color as background.
const backgroundMain = "main"

var intParams = []string{ParamWidth, ParamHeight, ParamQuality, ParamCropX, ParamCropY, ParamCropW, ParamCropH}

var stringParams = []string{
	ParamPreset, ParamFit, ParamAnchorX, ParamAnchorY, ParamBackground,
	ParamFormat, ParamFilters, ParamCropAuto, ParamCropAutoColor, ParamCropAutoThreshold,
	ParamInterlace,
}

// ParseConfig builds a render.Config from params. Values may be typed (int,
// bool, []string) or the raw strings of a query. When presets is non-nil a
// "preset" param selects the base configuration and the other params
// override it.
//
// Every error is an *imageserver.ParamError naming the offending param.
func ParseConfig(params imageserver.Params, presets *render.PresetRegistry) (render.Config, error) {
	cfg := render.NewConfig()

	if name, ok, err := stringParam(params, ParamPreset); err != nil {
		return cfg, err
	} else if ok && name != "" {
		if presets == nil {
			return cfg, paramError(ParamPreset, "presets are not available")
		}
		p, found := presets.Get(name)
		if !found {
			return cfg, paramError(ParamPreset, fmt.Sprintf("unknown preset %q", name))
		}
		cfg = p
	}

	var opts []render.Option

	for _, key := range []string{ParamWidth, ParamHeight} {
		v, ok, err := intParam(params, key)
		if err != nil {
			return cfg, err
		}
		if !ok {
			continue
		}
		if v < 0 {
			return cfg, paramError(key, "must not be negative")
		}
		if key == ParamWidth {
			opts = append(opts, render.WithWidth(v))
		} else {
			opts = append(opts, render.WithHeight(v))
		}
	}

	if s, ok, err := stringParam(params, ParamFit); err != nil {
		return cfg, err
	} else if ok {
		fit, err := geometry.ParseFitMode(s)
		if err != nil {
			return cfg, paramError(ParamFit, err.Error())
		}
		opts = append(opts, render.WithFit(fit))
	}

	anchor, changed, err := parseAnchor(params, cfg.Anchor)
	if err != nil {
		return cfg, err
	}
	if changed {
		opts = append(opts, render.WithAnchor(anchor))
	}

	if s, ok, err := stringParam(params, ParamBackground); err != nil {
		return cfg, err
	} else if ok {
		if strings.EqualFold(strings.TrimSpace(s), backgroundMain) {
			opts = append(opts, render.WithMainColorBackground())
		} else {
			bg, err := imaging.ParseBackground(s)
			if err != nil {
				return cfg, paramError(ParamBackground, err.Error())
			}
			opts = append(opts, render.WithBackground(bg))
		}
	}

	if s, ok, err := stringParam(params, ParamFormat); err != nil {
		return cfg, err
	} else if ok && s != "" {
		f, err := codec.ParseFormat(s)
		if err != nil {
			return cfg, paramError(ParamFormat, err.Error())
		}
		opts = append(opts, render.WithFormat(f))
	}

	if q, ok, err := intParam(params, ParamQuality); err != nil {
		return cfg, err
	} else if ok {
		if q < 0 || q > 100 {
			return cfg, paramError(ParamQuality, "must be between 0 and 100")
		}
		opts = append(opts, render.WithQuality(q))
	}

	if on, ok, err := boolParam(params, ParamInterlace); err != nil {
		return cfg, err
	} else if ok {
		opts = append(opts, render.WithInterlace(on))
	}

	if list, ok, err := listParam(params, ParamFilters); err != nil {
		return cfg, err
	} else if ok {
		specs, err := filter.ParseSpecs(list)
		if err != nil {
			return cfg, paramError(ParamFilters, err.Error())
		}
		opts = append(opts, render.WithFilters(specs...))
	}

	cropOpt, err := parseCrop(params)
	if err != nil {
		return cfg, err
	}
	if cropOpt != nil {
		opts = append(opts, cropOpt)
	}

	cfg = cfg.With(opts...)
	if err := cfg.Validate(); err != nil {
		return cfg, paramError("config", err.Error())
	}
	return cfg, nil
}

func parseAnchor(params imageserver.Params, base geometry.Anchor) (geometry.Anchor, bool, error) {
	anchor := base
	changed := false
	if s, ok, err := stringParam(params, ParamAnchorX); err != nil {
		return anchor, false, err
	} else if ok {
		a, err := geometry.ParseAnchor(s, "")
		if err != nil {
			return anchor, false, paramError(ParamAnchorX, err.Error())
		}
		anchor.Horizontal = a.Horizontal
		changed = true
	}
	if s, ok, err := stringParam(params, ParamAnchorY); err != nil {
		return anchor, false, err
	} else if ok {
		a, err := geometry.ParseAnchor("", s)
		if err != nil {
			return anchor, false, paramError(ParamAnchorY, err.Error())
		}
		anchor.Vertical = a.Vertical
		changed = true
	}
	return anchor, changed, nil
}

// parseCrop reads either the four pixel crop params or crop_auto.
func parseCrop(params imageserver.Params) (render.Option, error) {
	if s, ok, err := stringParam(params, ParamCropAuto); err != nil {
		return nil, err
	} else if ok && s != "" {
		mode, err := imaging.ParseAutoCropMode(s)
		if err != nil {
			return nil, paramError(ParamCropAuto, err.Error())
		}
		opts, err := parseAutoCropOptions(params, mode)
		if err != nil {
			return nil, err
		}
		return render.WithAutoCrop(mode, opts), nil
	}

	var r imaging.Rect
	fields := []struct {
		key string
		dst *int
	}{
		{ParamCropX, &r.X},
		{ParamCropY, &r.Y},
		{ParamCropW, &r.Width},
		{ParamCropH, &r.Height},
	}
	set := 0
	for _, f := range fields {
		v, ok, err := intParam(params, f.key)
		if err != nil {
			return nil, err
		}
		if ok {
			*f.dst = v
			set++
		}
	}
	switch set {
	case 0:
		return nil, nil
	case len(fields):
		return render.WithCrop(r), nil
	default:
		return nil, paramError(ParamCropW, "crop_x, crop_y, crop_w and crop_h must be given together")
	}
}

func parseAutoCropOptions(params imageserver.Params, mode imaging.AutoCropMode) (imaging.AutoCropOptions, error) {
	var opts imaging.AutoCropOptions
	if s, ok, err := stringParam(params, ParamCropAutoColor); err != nil {
		return opts, err
	} else if ok && s != "" {
		bg, err := imaging.ParseBackground(s)
		if err != nil {
			return opts, paramError(ParamCropAutoColor, err.Error())
		}
		opts.Color = bg.NRGBA()
	}
	t, ok, err := floatParam(params, ParamCropAutoThreshold)
	if err != nil {
		return opts, err
	}
	if ok {
		if t < 0 || t > 100 {
			return opts, paramError(ParamCropAutoThreshold, "must be between 0 and 100")
		}
		opts.Threshold = t
	}
	if mode == imaging.AutoCropThreshold && opts.Color == nil {
		return opts, paramError(ParamCropAutoColor, "required when crop_auto=threshold")
	}
	return opts, nil
}

func paramError(param, msg string) *imageserver.ParamError {
	return &imageserver.ParamError{Param: param, Message: msg}
}

func intParam(params imageserver.Params, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch v := v.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, paramError(key, "not an integer")
		}
		return i, true, nil
	default:
		return 0, false, paramError(key, "not an integer")
	}
}

func floatParam(params imageserver.Params, key string) (float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	switch v := v.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, paramError(key, "not a number")
		}
		return f, true, nil
	default:
		return 0, false, paramError(key, "not a number")
	}
}

func stringParam(params imageserver.Params, key string) (string, bool, error) {
	v, ok := params[key]
	if !ok {
		return "", false, nil
	}
	switch v := v.(type) {
	case string:
		return v, true, nil
	case fmt.Stringer:
		return v.String(), true, nil
	default:
		return "", false, paramError(key, "not a string")
	}
}

func boolParam(params imageserver.Params, key string) (bool, bool, error) {
	v, ok := params[key]
	if !ok {
		return false, false, nil
	}
	switch v := v.(type) {
	case bool:
		return v, true, nil
	case string:
		if v == "" {
			return true, true, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false, paramError(key, "not a boolean")
		}
		return b, true, nil
	default:
		return false, false, paramError(key, "not a boolean")
	}
}

func listParam(params imageserver.Params, key string) ([]string, bool, error) {
	v, ok := params[key]
	if !ok {
		return nil, false, nil
	}
	switch v := v.(type) {
	case []string:
		return v, true, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, true, nil
		}
		return strings.Split(v, ","), true, nil
	default:
		return nil, false, paramError(key, "not a list")
	}
}
