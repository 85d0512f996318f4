package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackground(t *testing.T) {
	tests := []struct {
		in   string
		want Background
	}{
		{"", White},
		{"white", White},
		{"transparent", Transparent()},
		{"#fff", Opaque(255, 255, 255)},
		{"#f80", Opaque(255, 136, 0)},
		{"#FF8040", Opaque(255, 128, 64)},
		{"ff8040", Opaque(255, 128, 64)},
		{"#00000000", Translucent(0, 0, 0, 0)},
		{"#102030ff", Translucent(16, 32, 48, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackground(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := ParseBackground("#ff000080")
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255, got.Alpha, 1e-9)
	assert.False(t, got.IsOpaque())

	for _, bad := range []string{"#ggg", "#12345", "xyz", "#1234567890"} {
		_, err := ParseBackground(bad)
		assert.Error(t, err, bad)
	}
}

func TestBackground(t *testing.T) {
	bg := Translucent(10, 20, 30, 0.5)
	assert.False(t, bg.IsOpaque())
	assert.Equal(t, color.NRGBA{10, 20, 30, 128}, bg.NRGBA())
	assert.Equal(t, "#0A141E80", bg.Hex())

	op := bg.Opaque()
	assert.True(t, op.IsOpaque())
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, op.NRGBA())
	assert.Equal(t, "#0A141E", op.String())
	assert.Equal(t, 0.5, bg.Alpha, "Opaque returns a copy")

	assert.Equal(t, 0.0, Translucent(0, 0, 0, -3).Alpha)
	assert.Equal(t, 1.0, Translucent(0, 0, 0, 7).Alpha)
	assert.Equal(t, uint8(0), Transparent().NRGBA().A)
}

func TestMainColor(t *testing.T) {
	img := createInMemoryImage(30, 20, color.RGBA{255, 128, 64, 255})

	result, err := MainColor(img)
	require.NoError(t, err)
	assert.Equal(t, "#FF8040", result.Hex)
	assert.Equal(t, RGBColor{255, 128, 64}, result.RGB)
	assert.Equal(t, uint8(255), result.RGBA.A)
	assert.Equal(t, 20, result.HSL.H)
	assert.Equal(t, 100, result.HSL.S)
	assert.Equal(t, 62, result.HSL.L)
}

func TestMainColor_Averages(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.SetNRGBA(x, y, color.NRGBA{200, 0, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 100, 255})
			}
		}
	}

	bg, err := MainColorBackground(img)
	require.NoError(t, err)
	assert.True(t, bg.IsOpaque())
	assert.InDelta(t, 100, int(bg.R), 2)
	assert.Equal(t, uint8(0), bg.G)
	assert.InDelta(t, 50, int(bg.B), 2)
}

func TestMainColor_Gray(t *testing.T) {
	result, err := MainColor(createInMemoryImage(3, 3, color.Gray{128}))
	require.NoError(t, err)
	assert.Equal(t, 0, result.HSL.H)
	assert.Equal(t, 0, result.HSL.S)
}

func TestMainColor_Empty(t *testing.T) {
	_, err := MainColor(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)

	_, err = MainColorBackground(nil)
	assert.Error(t, err)
}
