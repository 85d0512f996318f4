package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

const sampleConfig = `
log:
  level: debug
  format: json
cache:
  size_bytes: 1048576
render:
  workers: 3
minio:
  endpoint: localhost:9000
  bucket: images
  secure: false
presets:
  thumb:
    width: 150
    height: 150
    fit: cover
    anchor_x: left
    anchor_y: top
    format: webp
    quality: 80
  Gray:
    width: 640
    background: "#000"
    filters: ["grayscale", "gaussianblur:2"]
    auto_crop: sides
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, int64(64<<20), cfg.Cache.SizeBytes)
	assert.Equal(t, imaging.DefaultLimits, cfg.Render.Limits())
	assert.Equal(t, 0, cfg.Render.Workers)
	assert.False(t, cfg.Minio.Enabled())
	assert.Empty(t, cfg.Presets)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, int64(1048576), cfg.Cache.SizeBytes)
	assert.Equal(t, 3, cfg.Render.Workers)
	assert.True(t, cfg.Minio.Enabled())
	assert.Equal(t, "images", cfg.Minio.Bucket)
	assert.False(t, cfg.Minio.Secure)
	assert.Len(t, cfg.Presets, 2)
	assert.Contains(t, cfg.Presets, "gray", "preset names are lower-cased")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IMAGE_MCP_LOG_LEVEL", "warn")
	t.Setenv("IMAGE_MCP_RENDER_WORKERS", "7")
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Render.Workers)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name    string
		content string
	}{
		{"bad log format", "log:\n  format: xml\n"},
		{"negative workers", "render:\n  workers: -1\n"},
		{"minio without bucket", "minio:\n  endpoint: localhost:9000\n"},
		{"bad preset fit", "presets:\n  a:\n    fit: squish\n"},
		{"bad preset filter", "presets:\n  a:\n    filters: [\"sparkle\"]\n"},
		{"bad preset quality", "presets:\n  a:\n    quality: 300\n"},
		{"bad yaml", "log: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			assert.Error(t, err)
		})
	}
}

func TestPresetConfig_RenderConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	presets, err := cfg.RenderPresets()
	require.NoError(t, err)

	thumb := presets["thumb"]
	assert.Equal(t, 150, thumb.Width)
	assert.Equal(t, 150, thumb.Height)
	assert.Equal(t, geometry.FitCover, thumb.Fit)
	assert.Equal(t, geometry.Anchor{Horizontal: geometry.Left, Vertical: geometry.Top}, thumb.Anchor)
	assert.Equal(t, codec.WebP, thumb.Format)
	assert.Equal(t, 80, thumb.Quality)

	gray := presets["gray"]
	assert.Equal(t, 640, gray.Width)
	assert.Equal(t, geometry.FitContain, gray.Fit)
	assert.Equal(t, imaging.Opaque(0, 0, 0), gray.Background)
	assert.Equal(t, render.QualityDefault, gray.Quality)
	assert.Equal(t, render.CropAuto, gray.Crop.Mode)
	assert.Equal(t, imaging.AutoCropSides, gray.Crop.Auto)
	require.Len(t, gray.Filters, 2)
	assert.Equal(t, filter.Grayscale, gray.Filters[0].Kind)
	assert.Equal(t, filter.GaussianBlur, gray.Filters[1].Kind)
}

func TestApplyPresets(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), sampleConfig))
	require.NoError(t, err)

	reg := render.NewPresetRegistry()
	reg.Set("stale", render.NewConfig())
	require.NoError(t, ApplyPresets(cfg, reg))
	assert.Equal(t, []string{"gray", "thumb"}, reg.Names())
}

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, loader.Current())

	reg := render.NewPresetRegistry()
	require.NoError(t, ApplyPresets(cfg, reg))

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	// viper re-reads the file before it calls the change callback
	changed := func(content string) {
		writeConfig(t, dir, content)
		require.NoError(t, loader.v.ReadInConfig())
		loader.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, reg, logger)
	}

	changed("presets:\n  banner:\n    width: 1200\n")
	assert.Equal(t, []string{"banner"}, reg.Names())
	assert.Empty(t, loader.Current().Presets["thumb"].Fit)
	assert.Equal(t, 1, logs.FilterMessage("reloaded presets").Len())

	changed("presets:\n  banner:\n    fit: nonsense\n")

	assert.Equal(t, []string{"banner"}, reg.Names(), "invalid edits keep the previous presets")
	banner, ok := reg.Get("banner")
	require.True(t, ok)
	assert.Equal(t, 1200, banner.Width)
	assert.Equal(t, 1, logs.FilterMessage("ignoring invalid config change").Len())
}

func TestLoader_ReloadUsesViperState(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)
	reg := render.NewPresetRegistry()

	// The file changes on disk but viper has not re-read it: reload decodes
	// what viper holds and leaves the file alone.
	writeConfig(t, dir, "presets:\n  banner:\n    width: 1200\n")
	loader.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, reg, zap.NewNop())

	assert.Equal(t, []string{"gray", "thumb"}, reg.Names())
}

func TestLoader_WatchWithoutFile(t *testing.T) {
	loader := NewLoader("")
	_, err := loader.Load()
	require.NoError(t, err)

	// no file to watch; must not panic or block
	loader.WatchPresets(render.NewPresetRegistry(), nil)
}
