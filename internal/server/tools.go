package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var fitEnum = []string{"contain", "cover", "stretch"}

// renderProperties describes the arguments shared by image_render and each
// image_render_batch job.
func renderProperties() map[string]interface{} {
	rect := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "object",
			"description": desc,
			"properties": map[string]interface{}{
				"x":      map[string]interface{}{"type": "number"},
				"y":      map[string]interface{}{"type": "number"},
				"width":  map[string]interface{}{"type": "number"},
				"height": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y", "width", "height"},
		}
	}
	return map[string]interface{}{
		"path": pathProperty,
		"output_path": map[string]interface{}{
			"type":        "string",
			"description": "Where to write the result. When omitted the image is returned as base64.",
		},
		"override": map[string]interface{}{
			"type":        "boolean",
			"description": "Replace output_path if it already exists. Default false",
		},
		"preset": map[string]interface{}{
			"type":        "string",
			"description": "Named configuration to start from; other arguments override it",
		},
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Target width in pixels. 0 or omitted leaves the axis unconstrained",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Target height in pixels. 0 or omitted leaves the axis unconstrained",
		},
		"fit": map[string]interface{}{
			"type":        "string",
			"enum":        fitEnum,
			"description": "How the content fills a width x height box. Default contain",
		},
		"anchor_x": map[string]interface{}{
			"type": "string",
			"enum": []string{"left", "center", "right"},
		},
		"anchor_y": map[string]interface{}{
			"type": "string",
			"enum": []string{"top", "center", "bottom"},
		},
		"background": map[string]interface{}{
			"type":        "string",
			"description": "#rgb, #rrggbb, #rrggbbaa, white, transparent or main (the source's average color). Default white",
		},
		"format": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"jpeg", "png", "gif", "webp", "bmp"},
			"description": "Output format. Default: output_path extension, then the source format",
		},
		"quality": map[string]interface{}{
			"type":        "integer",
			"description": "0-100. For PNG higher means less compression",
		},
		"interlace": map[string]interface{}{
			"type": "boolean",
		},
		"filters": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Filters applied in order after compositing, e.g. [\"grayscale\", \"brightness:20\", \"gaussianblur:2\"]",
		},
		"crop":         rect("Pixel region of the source to render; clamped to the source bounds"),
		"crop_percent": rect("Region of the source in percent (0-100) of its size"),
		"auto_crop": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"default", "transparent", "black", "white", "sides", "threshold"},
			"description": "Trim a uniform border before rendering",
		},
		"auto_crop_color": map[string]interface{}{
			"type":        "string",
			"description": "Border color for auto_crop threshold, as hex",
		},
		"auto_crop_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Tolerance in percent for auto_crop threshold",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and channel layout.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "image_resolve_geometry",
			Description: "Compute canvas size, content size and content offset for a source size and target box without touching any pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"src_width":  map[string]interface{}{"type": "integer"},
					"src_height": map[string]interface{}{"type": "integer"},
					"width":      map[string]interface{}{"type": "integer"},
					"height":     map[string]interface{}{"type": "integer"},
					"fit": map[string]interface{}{
						"type": "string",
						"enum": fitEnum,
					},
					"anchor_x": map[string]interface{}{"type": "string"},
					"anchor_y": map[string]interface{}{"type": "string"},
				},
				"required": []string{"src_width", "src_height"},
			},
		},
		{
			Name:        "image_render",
			Description: "Crop, resize onto a background canvas, filter and encode an image. Writes to output_path or returns base64.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": renderProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_render_batch",
			Description: "Render many files concurrently. Each job takes the image_render arguments and must set output_path. A failed job does not stop the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"jobs": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": renderProperties(),
							"required":   []string{"path", "output_path"},
						},
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum concurrent renders. Default: server setting",
					},
				},
				"required": []string{"jobs"},
			},
		},
		{
			Name:        "image_list_presets",
			Description: "List the named render presets available to image_render.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Region Operations
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image and return it as base64-encoded PNG. The region is clamped to the image bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Region width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Region height in pixels",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "image_crop_quadrant",
			Description: "Crop a named region of the image (top-left, top-right, bottom-left, bottom-right, top-half, bottom-half, left-half, right-half, center).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"region": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
						"description": "Named region to extract",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "region"},
			},
		},
		{
			Name:        "image_autocrop_bounds",
			Description: "Find the region left after trimming a uniform border, without rendering.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"mode": map[string]interface{}{
						"type": "string",
						"enum": []string{"default", "transparent", "black", "white", "sides", "threshold"},
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Border color for threshold mode, as hex",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Tolerance in percent for threshold mode",
					},
				},
				"required": []string{"path"},
			},
		},

		// Color Operations
		{
			Name:        "image_main_color",
			Description: "Get the average color of the whole image (the color used by background \"main\").",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
