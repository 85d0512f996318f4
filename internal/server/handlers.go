package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pierrre/imageserver"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imageserve"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_render").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Rendering
	case "image_resolve_geometry":
		return s.handleResolveGeometry(args)
	case "image_render":
		return s.handleImageRender(args)
	case "image_render_batch":
		return s.handleImageRenderBatch(args)
	case "image_list_presets":
		return s.handleListPresets()

	// Region Operations
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_crop_quadrant":
		return s.handleImageCropQuadrant(args)
	case "image_autocrop_bounds":
		return s.handleAutoCropBounds(args)

	// Color Operations
	case "image_main_color":
		return s.handleMainColor(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Rendering Handlers ===

type resolveGeometryArgs struct {
	SrcWidth  int    `json:"src_width"`
	SrcHeight int    `json:"src_height"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Fit       string `json:"fit"`
	AnchorX   string `json:"anchor_x"`
	AnchorY   string `json:"anchor_y"`
}

type resolveGeometryResult struct {
	geometry.Result
	Fit    string `json:"fit"`
	Anchor string `json:"anchor"`
}

func (s *Server) handleResolveGeometry(args json.RawMessage) (interface{}, error) {
	var a resolveGeometryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.SrcWidth <= 0 || a.SrcHeight <= 0 {
		return nil, errors.Errorf("source size must be positive, got %dx%d", a.SrcWidth, a.SrcHeight)
	}
	fit, err := geometry.ParseFitMode(a.Fit)
	if err != nil {
		return nil, err
	}
	anchor, err := geometry.ParseAnchor(a.AnchorX, a.AnchorY)
	if err != nil {
		return nil, err
	}
	return &resolveGeometryResult{
		Result: geometry.Resolve(a.SrcWidth, a.SrcHeight, a.Width, a.Height, fit, anchor),
		Fit:    fit.String(),
		Anchor: anchor.String(),
	}, nil
}

type percentRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type renderArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	Override   bool   `json:"override"`
	Preset     string `json:"preset"`

	Width      *int     `json:"width"`
	Height     *int     `json:"height"`
	Fit        string   `json:"fit"`
	AnchorX    string   `json:"anchor_x"`
	AnchorY    string   `json:"anchor_y"`
	Background string   `json:"background"`
	Format     string   `json:"format"`
	Quality    *int     `json:"quality"`
	Interlace  *bool    `json:"interlace"`
	Filters    []string `json:"filters"`

	Crop              *imaging.Rect `json:"crop"`
	CropPercent       *percentRect  `json:"crop_percent"`
	AutoCrop          string        `json:"auto_crop"`
	AutoCropColor     string        `json:"auto_crop_color"`
	AutoCropThreshold float64       `json:"auto_crop_threshold"`
}

// params maps the arguments onto the image server's param model so both
// front ends accept the same values.
func (a *renderArgs) params() imageserver.Params {
	p := imageserver.Params{}
	setString := func(key, v string) {
		if v != "" {
			p[key] = v
		}
	}
	setString(imageserve.ParamPreset, a.Preset)
	setString(imageserve.ParamFit, a.Fit)
	setString(imageserve.ParamAnchorX, a.AnchorX)
	setString(imageserve.ParamAnchorY, a.AnchorY)
	setString(imageserve.ParamBackground, a.Background)
	setString(imageserve.ParamFormat, a.Format)
	setString(imageserve.ParamCropAuto, a.AutoCrop)
	setString(imageserve.ParamCropAutoColor, a.AutoCropColor)
	if a.AutoCropThreshold != 0 {
		p[imageserve.ParamCropAutoThreshold] = a.AutoCropThreshold
	}
	if a.Width != nil {
		p[imageserve.ParamWidth] = *a.Width
	}
	if a.Height != nil {
		p[imageserve.ParamHeight] = *a.Height
	}
	if a.Quality != nil {
		p[imageserve.ParamQuality] = *a.Quality
	}
	if a.Interlace != nil {
		p[imageserve.ParamInterlace] = *a.Interlace
	}
	if a.Filters != nil {
		p[imageserve.ParamFilters] = a.Filters
	}
	if a.Crop != nil {
		p[imageserve.ParamCropX] = a.Crop.X
		p[imageserve.ParamCropY] = a.Crop.Y
		p[imageserve.ParamCropW] = a.Crop.Width
		p[imageserve.ParamCropH] = a.Crop.Height
	}
	return p
}

func (s *Server) renderConfig(a *renderArgs) (render.Config, error) {
	crops := 0
	for _, set := range []bool{a.Crop != nil, a.CropPercent != nil, a.AutoCrop != ""} {
		if set {
			crops++
		}
	}
	if crops > 1 {
		return render.Config{}, errors.New("crop, crop_percent and auto_crop are mutually exclusive")
	}

	cfg, err := imageserve.ParseConfig(a.params(), s.presets)
	if err != nil {
		return render.Config{}, err
	}

	if p := a.CropPercent; p != nil {
		cfg = cfg.With(render.WithCropPercent(p.X, p.Y, p.Width, p.Height))
	}
	return cfg, nil
}

type renderResult struct {
	*render.Output
	Source      string `json:"source"`
	OutputPath  string `json:"output_path,omitempty"`
	SizeBytes   int    `json:"size_bytes"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (s *Server) handleImageRender(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.renderConfig(&a)
	if err != nil {
		return nil, err
	}

	if a.OutputPath != "" {
		out, err := s.renderer.RenderFile(a.Path, a.OutputPath, cfg, a.Override)
		if err != nil {
			return nil, err
		}
		s.cache.Evict(a.OutputPath)
		return &renderResult{Output: out, Source: a.Path, OutputPath: a.OutputPath, SizeBytes: len(out.Data)}, nil
	}

	img, format, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := s.renderer.Render(img, format, cfg)
	if err != nil {
		return nil, err
	}
	return &renderResult{
		Output:      out,
		Source:      a.Path,
		SizeBytes:   len(out.Data),
		ImageBase64: base64.StdEncoding.EncodeToString(out.Data),
	}, nil
}

type renderBatchArgs struct {
	Jobs    []renderArgs `json:"jobs"`
	Workers int          `json:"workers"`
}

type batchJobResult struct {
	Source     string         `json:"source"`
	OutputPath string         `json:"output_path"`
	Output     *render.Output `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type renderBatchResult struct {
	Results   []batchJobResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

func (s *Server) handleImageRenderBatch(args json.RawMessage) (interface{}, error) {
	var a renderBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Jobs) == 0 {
		return nil, errors.New("jobs must not be empty")
	}

	// Arguments are checked up front so a typo fails the call instead of
	// every job.
	jobs := make([]render.Job, len(a.Jobs))
	for i := range a.Jobs {
		ja := &a.Jobs[i]
		if ja.Path == "" || ja.OutputPath == "" {
			return nil, errors.Errorf("job %d: path and output_path are required", i)
		}
		cfg, err := s.renderConfig(ja)
		if err != nil {
			return nil, errors.Wrapf(err, "job %d", i)
		}
		jobs[i] = render.Job{Src: ja.Path, Dst: ja.OutputPath, Config: cfg, Override: ja.Override}
	}

	workers := a.Workers
	if workers <= 0 {
		workers = s.workers
	}

	res := &renderBatchResult{Results: make([]batchJobResult, len(jobs))}
	for i, r := range s.renderer.Batch(context.Background(), jobs, workers) {
		jr := batchJobResult{Source: r.Job.Src, OutputPath: r.Job.Dst, Output: r.Output}
		if r.Err != nil {
			jr.Error = r.Err.Error()
			res.Failed++
		} else {
			s.cache.Evict(r.Job.Dst)
			res.Succeeded++
		}
		res.Results[i] = jr
	}
	return res, nil
}

type presetSummary struct {
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fit        string `json:"fit"`
	Anchor     string `json:"anchor"`
	Background string `json:"background"`
	Format     string `json:"format,omitempty"`
	Filters    int    `json:"filters"`
}

func (s *Server) handleListPresets() (interface{}, error) {
	names := s.presets.Names()
	out := make([]presetSummary, 0, len(names))
	for _, name := range names {
		cfg, ok := s.presets.Get(name)
		if !ok {
			// removed by a reload since Names
			continue
		}
		bg := cfg.Background.String()
		if cfg.MainColorBackground {
			bg = "main"
		}
		out = append(out, presetSummary{
			Name:       name,
			Width:      cfg.Width,
			Height:     cfg.Height,
			Fit:        cfg.Fit.String(),
			Anchor:     cfg.Anchor.String(),
			Background: bg,
			Format:     string(cfg.Format),
			Filters:    len(cfg.Filters),
		})
	}
	return map[string]interface{}{"presets": out}, nil
}

// === Region Operation Handlers ===

type imageCropArgs struct {
	Path   string  `json:"path"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, _, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, imaging.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}, a.Scale)
}

type imageCropQuadrantArgs struct {
	Path   string  `json:"path"`
	Region string  `json:"region"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleImageCropQuadrant(args json.RawMessage) (interface{}, error) {
	var a imageCropQuadrantArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, _, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropQuadrant(img, a.Region, a.Scale)
}

type autoCropArgs struct {
	Path      string  `json:"path"`
	Mode      string  `json:"mode"`
	Color     string  `json:"color"`
	Threshold float64 `json:"threshold"`
}

type autoCropResult struct {
	Region       imaging.Rect `json:"region"`
	SourceWidth  int          `json:"source_width"`
	SourceHeight int          `json:"source_height"`
	Mode         string       `json:"mode"`
}

func (s *Server) handleAutoCropBounds(args json.RawMessage) (interface{}, error) {
	var a autoCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, err := imaging.ParseAutoCropMode(a.Mode)
	if err != nil {
		return nil, err
	}
	opts := imaging.AutoCropOptions{Threshold: a.Threshold}
	if a.Color != "" {
		bg, err := imaging.ParseBackground(a.Color)
		if err != nil {
			return nil, err
		}
		opts.Color = bg.NRGBA()
	}

	img, _, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region, err := imaging.AutoCrop(img, mode, opts)
	if err != nil {
		return nil, err
	}
	return &autoCropResult{
		Region:       region,
		SourceWidth:  img.Bounds().Dx(),
		SourceHeight: img.Bounds().Dy(),
		Mode:         mode.String(),
	}, nil
}

// === Color Operation Handlers ===

func (s *Server) handleMainColor(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, _, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.MainColor(img)
}
