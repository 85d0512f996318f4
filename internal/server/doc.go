// Package server implements the MCP (Model Context Protocol) server for image rendering tools.
//
// This package provides a JSON-RPC 2.0 server that exposes thumbnail rendering
// (crop, resize onto a canvas, filter, encode) through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Rendering:
//   - image_resolve_geometry: Canvas, content size and offset for a target box
//   - image_render: Render one image to a file or to base64
//   - image_render_batch: Render many files concurrently
//   - image_list_presets: Show the named configurations from the config file
//
// Region Operations:
//   - image_crop: Extract rectangular region
//   - image_crop_quadrant: Extract named region (top-left, center, etc.)
//   - image_autocrop_bounds: Find the region inside a uniform border
//
// Color Operations:
//   - image_main_color: Average color of the image
//
// Render arguments use the same names and values as the HTTP image server in
// package imageserve, so a preset or query that works in one works in the
// other.
//
// # Image Caching
//
// Decoded source images are cached by path and reused across tool calls.
// Files written by image_render are evicted so a later load sees the new
// contents.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.WithLogger(logger), server.WithPresets(reg))
//	if err := srv.Run(); err != nil {
//	    logger.Fatal("server error", zap.Error(err))
//	}
package server
