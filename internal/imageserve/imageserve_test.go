package imageserve

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pierrre/imageserver"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-render-mcp/internal/codec"
	"github.com/ironsheep/image-render-mcp/internal/filter"
	"github.com/ironsheep/image-render-mcp/internal/geometry"
	"github.com/ironsheep/image-render-mcp/internal/imaging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

func encodeTestImage(t *testing.T, w, h int, c color.Color, f codec.Format) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := codec.EncodeBytes(img, f, codec.DefaultQuality(f))
	require.NoError(t, err)
	return data
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := codec.Decode(data)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func requireParamError(t *testing.T, err error, param string) {
	t.Helper()
	var pe *imageserver.ParamError
	require.True(t, errors.As(err, &pe), "expected ParamError, got %v", err)
	assert.Equal(t, param, pe.Param)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(imageserver.Params{
		"width":      "300",
		"height":     200,
		"fit":        "cover",
		"anchor_x":   "right",
		"background": "#ff000080",
		"format":     "jpg",
		"quality":    "75",
		"interlace":  "true",
		"filters":    "grayscale,brightness:20",
		"crop_x":     "1",
		"crop_y":     2,
		"crop_w":     "30",
		"crop_h":     "40",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
	assert.Equal(t, geometry.FitCover, cfg.Fit)
	assert.Equal(t, geometry.Anchor{Horizontal: geometry.Right, Vertical: geometry.VCenter}, cfg.Anchor)
	assert.Equal(t, uint8(255), cfg.Background.R)
	assert.InDelta(t, 128.0/255.0, cfg.Background.Alpha, 0.01)
	assert.Equal(t, codec.JPEG, cfg.Format)
	assert.Equal(t, 75, cfg.Quality)
	assert.True(t, cfg.Interlace)
	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, filter.Grayscale, cfg.Filters[0].Kind)
	assert.Equal(t, filter.Brightness, cfg.Filters[1].Kind)
	assert.Equal(t, render.CropPixels, cfg.Crop.Mode)
	assert.Equal(t, imaging.Rect{X: 1, Y: 2, Width: 30, Height: 40}, cfg.Crop.Rect)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(imageserver.Params{"source": "a.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, render.NewConfig(), cfg)
}

func TestParseConfig_MainColorAndAutoCrop(t *testing.T) {
	cfg, err := ParseConfig(imageserver.Params{
		"background": "main",
		"crop_auto":  "sides",
		"filters":    []string{"negate"},
	}, nil)
	require.NoError(t, err)
	assert.True(t, cfg.MainColorBackground)
	assert.Equal(t, render.CropAuto, cfg.Crop.Mode)
	assert.Equal(t, imaging.AutoCropSides, cfg.Crop.Auto)
	require.Len(t, cfg.Filters, 1)
}

func TestParseConfig_ThresholdAutoCrop(t *testing.T) {
	cfg, err := ParseConfig(imageserver.Params{
		"crop_auto":           "threshold",
		"crop_auto_color":     "#ffffff",
		"crop_auto_threshold": "12.5",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, imaging.AutoCropThreshold, cfg.Crop.Auto)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, cfg.Crop.AutoOptions.Color)
	assert.Equal(t, 12.5, cfg.Crop.AutoOptions.Threshold)
}

func TestParseConfig_Preset(t *testing.T) {
	reg := render.NewPresetRegistry()
	reg.Set("thumb", render.NewConfig(
		render.WithSize(150, 150),
		render.WithFit(geometry.FitCover),
		render.WithAnchor(geometry.Anchor{Horizontal: geometry.Left, Vertical: geometry.Top}),
		render.WithFormat(codec.WebP),
	))

	cfg, err := ParseConfig(imageserver.Params{"preset": "thumb", "width": "64", "anchor_y": "bottom"}, reg)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
	assert.Equal(t, geometry.FitCover, cfg.Fit)
	assert.Equal(t, geometry.Anchor{Horizontal: geometry.Left, Vertical: geometry.Bottom}, cfg.Anchor)
	assert.Equal(t, codec.WebP, cfg.Format)

	stored, ok := reg.Get("thumb")
	require.True(t, ok)
	assert.Equal(t, 150, stored.Width, "overrides must not leak into the registry")

	_, err = ParseConfig(imageserver.Params{"preset": "missing"}, reg)
	requireParamError(t, err, "preset")

	_, err = ParseConfig(imageserver.Params{"preset": "thumb"}, nil)
	requireParamError(t, err, "preset")
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params imageserver.Params
		param  string
	}{
		{"width not int", imageserver.Params{"width": "wide"}, "width"},
		{"negative height", imageserver.Params{"height": -3}, "height"},
		{"width wrong type", imageserver.Params{"width": true}, "width"},
		{"fit", imageserver.Params{"fit": "squash"}, "fit"},
		{"anchor x", imageserver.Params{"anchor_x": "middle"}, "anchor_x"},
		{"anchor y", imageserver.Params{"anchor_y": "left"}, "anchor_y"},
		{"background", imageserver.Params{"background": "#12"}, "background"},
		{"format", imageserver.Params{"format": "tiff"}, "format"},
		{"quality range", imageserver.Params{"quality": "101"}, "quality"},
		{"interlace", imageserver.Params{"interlace": "maybe"}, "interlace"},
		{"filters", imageserver.Params{"filters": "sparkle"}, "filters"},
		{"filters type", imageserver.Params{"filters": 3}, "filters"},
		{"partial crop", imageserver.Params{"crop_x": "1", "crop_w": "3"}, "crop_w"},
		{"auto crop mode", imageserver.Params{"crop_auto": "diagonal"}, "crop_auto"},
		{"threshold without color", imageserver.Params{"crop_auto": "threshold"}, "crop_auto_color"},
		{"auto crop color", imageserver.Params{"crop_auto": "threshold", "crop_auto_color": "#zz"}, "crop_auto_color"},
		{"threshold range", imageserver.Params{"crop_auto": "threshold", "crop_auto_color": "#fff", "crop_auto_threshold": "150"}, "crop_auto_threshold"},
		{"threshold not number", imageserver.Params{"crop_auto": "threshold", "crop_auto_color": "#fff", "crop_auto_threshold": "lots"}, "crop_auto_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.params, nil)
			requireParamError(t, err, tt.param)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	src := &imageserver.Image{Format: "png", Data: encodeTestImage(t, 40, 20, color.NRGBA{R: 200, A: 255}, codec.PNG)}

	out, err := h.Handle(src, imageserver.Params{"width": "20"})
	require.NoError(t, err)
	assert.Equal(t, "png", out.Format)
	w, hgt := decodeSize(t, out.Data)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, hgt)

	out, err = h.Handle(src, imageserver.Params{"width": 10, "height": 10, "format": "jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "jpeg", out.Format)
	w, hgt = decodeSize(t, out.Data)
	assert.Equal(t, 10, w)
	assert.Equal(t, 10, hgt)
}

func TestHandler_Errors(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	src := &imageserver.Image{Format: "png", Data: encodeTestImage(t, 40, 20, color.White, codec.PNG)}

	_, err := h.Handle(&imageserver.Image{Format: "png", Data: []byte("not an image")}, imageserver.Params{})
	var ie *imageserver.ImageError
	assert.True(t, errors.As(err, &ie), "expected ImageError, got %v", err)

	_, err = h.Handle(src, imageserver.Params{"crop_x": 100, "crop_y": 100, "crop_w": 10, "crop_h": 10})
	requireParamError(t, err, "crop_w")

	_, err = h.Handle(src, imageserver.Params{"crop_auto": "sides"})
	requireParamError(t, err, "crop_auto")

	_, err = h.Handle(src, imageserver.Params{"crop_auto": "threshold", "crop_auto_color": "#fff", "crop_auto_threshold": 5})
	requireParamError(t, err, "crop_auto")

	_, err = h.Handle(src, imageserver.Params{"crop_auto": "threshold"})
	requireParamError(t, err, "crop_auto_color")

	_, err = h.Handle(src, imageserver.Params{"width": 100000, "height": 100000, "fit": "stretch"})
	requireParamError(t, err, "width")

	_, err = h.Handle(src, imageserver.Params{"filters": "brightness"})
	requireParamError(t, err, "filters")
}

func TestFileSource(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	data := encodeTestImage(t, 4, 4, color.Black, codec.PNG)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.png"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.png"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	src := &FileSource{Root: root}

	im, err := src.Get(imageserver.Params{"source": "/sub/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "png", im.Format)
	assert.Equal(t, data, im.Data)

	_, err = src.Get(imageserver.Params{"source": "../secret.png"})
	requireParamError(t, err, "source")

	_, err = src.Get(imageserver.Params{"source": "/sub/../../secret.png"})
	requireParamError(t, err, "source")

	_, err = src.Get(imageserver.Params{})
	requireParamError(t, err, "source")

	_, err = src.Get(imageserver.Params{"source": "/"})
	requireParamError(t, err, "source")

	_, err = src.Get(imageserver.Params{"source": "notes.txt"})
	var ie *imageserver.ImageError
	assert.True(t, errors.As(err, &ie))
}

type fakeStore struct {
	objects map[string][]byte
	fail    error
	opened  []string
}

func (f *fakeStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.opened = append(f.opened, bucket+"/"+key)
	if f.fail != nil {
		return nil, f.fail
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.Wrap(ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestMinioSource(t *testing.T) {
	data := encodeTestImage(t, 3, 3, color.White, codec.GIF)
	store := &fakeStore{objects: map[string][]byte{"img/a.gif": data}}
	src := NewMinioSource(store, "images")

	im, err := src.Get(imageserver.Params{"source": "/img/a.gif"})
	require.NoError(t, err)
	assert.Equal(t, "gif", im.Format)
	assert.Equal(t, []string{"images/img/a.gif"}, store.opened)

	_, err = src.Get(imageserver.Params{"source": "img/missing.gif"})
	requireParamError(t, err, "source")

	store.fail = errors.New("connection refused")
	_, err = src.Get(imageserver.Params{"source": "img/a.gif"})
	require.Error(t, err)
	var pe *imageserver.ParamError
	assert.False(t, errors.As(err, &pe))
}

func TestNewMinioClient(t *testing.T) {
	client, err := NewMinioClient("localhost:9000", "key", "secret", false)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, NewMinioStore(client))

	_, err = NewMinioClient("http://bad endpoint", "key", "secret", false)
	assert.Error(t, err)
}

type countingSource struct {
	calls atomic.Int32
	data  []byte
}

func (c *countingSource) Get(params imageserver.Params) (*imageserver.Image, error) {
	c.calls.Add(1)
	return &imageserver.Image{Format: "png", Data: c.data}, nil
}

func TestNewServer_Cache(t *testing.T) {
	source := &countingSource{data: encodeTestImage(t, 8, 8, color.White, codec.PNG)}
	srv := NewServer(source, NewHandler(nil, nil, nil), 1<<20)

	first, err := srv.Get(imageserver.Params{"source": "a.png", "width": "4"})
	require.NoError(t, err)
	second, err := srv.Get(imageserver.Params{"source": "a.png", "width": "4"})
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, int32(1), source.calls.Load())

	_, err = srv.Get(imageserver.Params{"source": "a.png", "width": "2"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestNewServer_NoCache(t *testing.T) {
	source := &countingSource{data: encodeTestImage(t, 8, 8, color.White, codec.PNG)}
	srv := NewServer(source, NewHandler(nil, nil, nil), 0)

	for i := 0; i < 2; i++ {
		_, err := srv.Get(imageserver.Params{"source": "a.png"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestParamsHashKeyGenerator(t *testing.T) {
	gen := NewParamsHashKeyGenerator()

	a := gen.GetKey(imageserver.Params{"source": "a.png", "width": "4", "fit": "cover"})
	b := gen.GetKey(imageserver.Params{"fit": "cover", "width": "4", "source": "a.png"})
	c := gen.GetKey(imageserver.Params{"source": "a.png", "width": "5", "fit": "cover"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHTTPHandler(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), encodeTestImage(t, 40, 20, color.White, codec.PNG), 0o644))

	srv := NewServer(&FileSource{Root: root}, NewHandler(nil, nil, nil), 1<<20)
	ts := httptest.NewServer(NewHTTPHandler(srv, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/a.png?width=10&format=jpeg")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	w, h := decodeSize(t, body)
	assert.Equal(t, 10, w)
	assert.Equal(t, 5, h)

	for _, path := range []string{"/a.png?width=abc", "/missing.png", "/a.png?fit=squash", "/a.png?crop_auto=threshold"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestQueryParser_Resolve(t *testing.T) {
	p := QueryParser{}
	assert.Equal(t, "width", p.Resolve("width"))
	assert.Equal(t, "crop_auto", p.Resolve("crop_auto"))
	assert.Equal(t, "", p.Resolve("source"))
}
