package codec

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPatternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"jpg", JPEG},
		{"JPEG", JPEG},
		{".png", PNG},
		{"gif", GIF},
		{"webp", WebP},
		{" bmp ", BMP},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseFormat("tiff")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFormatProperties(t *testing.T) {
	assert.False(t, JPEG.SupportsAlpha())
	assert.False(t, BMP.SupportsAlpha())
	assert.True(t, PNG.SupportsAlpha())
	assert.True(t, GIF.SupportsAlpha())
	assert.True(t, WebP.SupportsAlpha())

	assert.Equal(t, "jpg", JPEG.Extension())
	assert.Equal(t, "png", PNG.Extension())
	assert.Equal(t, "image/webp", WebP.MIME())

	f, err := FormatFromMIME("image/gif")
	require.NoError(t, err)
	assert.Equal(t, GIF, f)
}

func TestPNGCompressionLevel(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{100, 0},
		{0, 9},
		{50, 5},
		{90, 1},
		{-20, 9},
		{250, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PNGCompressionLevel(tt.quality), "quality %d", tt.quality)
	}
}

func TestDefaultQuality(t *testing.T) {
	assert.Equal(t, 0, DefaultQuality(PNG))
	assert.Equal(t, 100, DefaultQuality(JPEG))
	assert.Equal(t, 100, DefaultQuality(WebP))
}

func TestEncodeDecode_Lossless(t *testing.T) {
	src := createPatternImage(20, 10)

	for _, f := range []Format{PNG, BMP} {
		t.Run(string(f), func(t *testing.T) {
			data, err := EncodeBytes(src, f, DefaultQuality(f))
			require.NoError(t, err)

			img, detected, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, f, detected)
			require.Equal(t, src.Bounds(), img.Bounds())

			for y := 0; y < 10; y++ {
				for x := 0; x < 20; x++ {
					r1, g1, b1, _ := src.At(x, y).RGBA()
					r2, g2, b2, _ := img.At(x, y).RGBA()
					require.Equal(t, [3]uint32{r1 >> 8, g1 >> 8, b1 >> 8}, [3]uint32{r2 >> 8, g2 >> 8, b2 >> 8},
						"pixel (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestEncodeDecode_Lossy(t *testing.T) {
	src := createPatternImage(32, 32)

	for _, f := range []Format{JPEG, GIF} {
		t.Run(string(f), func(t *testing.T) {
			data, err := EncodeBytes(src, f, 80)
			require.NoError(t, err)

			img, detected, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, f, detected)
			assert.Equal(t, 32, img.Bounds().Dx())
			assert.Equal(t, 32, img.Bounds().Dy())
		})
	}
}

func TestEncode_PNGQualityChangesSize(t *testing.T) {
	src := createPatternImage(128, 128)

	small, err := EncodeBytes(src, PNG, 0)
	require.NoError(t, err)
	large, err := EncodeBytes(src, PNG, 100)
	require.NoError(t, err)

	assert.Less(t, len(small), len(large))
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer

	err := Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 0, 0)), PNG, 0)
	assert.True(t, errors.Is(err, ErrEncodeFailed))

	err = Encode(&buf, createPatternImage(2, 2), Format("tiff"), 0)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode(nil)
	assert.True(t, errors.Is(err, ErrDecodeFailed))

	_, _, err = Decode([]byte("definitely not an image"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	// valid PNG signature, truncated body
	_, _, err = Decode([]byte("\x89PNG\r\n\x1a\n\x00\x00"))
	assert.True(t, errors.Is(err, ErrDecodeFailed))
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.png")
	data, err := EncodeBytes(createPatternImage(8, 6), PNG, 100)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	img, f, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, PNG, f)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, _, err = DecodeFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	require.NoError(t, WriteFile(path, []byte("one"), false))

	err := WriteFile(path, []byte("two"), false)
	assert.True(t, errors.Is(err, ErrDestinationExists))
	got, _ := os.ReadFile(path)
	assert.Equal(t, "one", string(got))

	require.NoError(t, WriteFile(path, []byte("three"), true))
	got, _ = os.ReadFile(path)
	assert.Equal(t, "three", string(got))

	err = WriteFile(filepath.Join(dir, "nope", "out.bin"), []byte("x"), true)
	assert.True(t, errors.Is(err, ErrDestinationDir))
}
