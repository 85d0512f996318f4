package codec

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

var (
	// ErrUnsupportedFormat is returned for formats outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecodeFailed is returned when input bytes cannot be decoded.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrEncodeFailed is returned when a canvas cannot be encoded.
	ErrEncodeFailed = errors.New("encode failed")

	// ErrDestinationExists is returned by WriteFile when override is disabled
	// and the destination already exists.
	ErrDestinationExists = errors.New("destination file exists and override is disabled")

	// ErrDestinationDir is returned by WriteFile when the destination directory
	// does not exist.
	ErrDestinationDir = errors.New("destination directory does not exist")
)

// Format is an image container format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	WebP Format = "webp"
	BMP  Format = "bmp"
)

var mimeTypes = map[Format]string{
	JPEG: "image/jpeg",
	PNG:  "image/png",
	GIF:  "image/gif",
	WebP: "image/webp",
	BMP:  "image/bmp",
}

// ParseFormat parses a format or extension name such as "jpg", ".PNG" or "webp".
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	case "webp":
		return WebP, nil
	case "bmp":
		return BMP, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", s)
	}
}

// FormatFromMIME maps a MIME type to a Format.
func FormatFromMIME(mime string) (Format, error) {
	for f, m := range mimeTypes {
		if m == mime {
			return f, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "mime %q", mime)
}

// MIME returns the format's media type.
func (f Format) MIME() string {
	return mimeTypes[f]
}

// Extension returns the conventional file extension, without the dot.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// SupportsAlpha reports whether the format can carry transparency.
func (f Format) SupportsAlpha() bool {
	return f != JPEG && f != BMP
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	_, ok := mimeTypes[f]
	return ok
}

// DefaultQuality is the quality used when none was requested.
func DefaultQuality(f Format) int {
	if f == PNG {
		return 0
	}
	return 100
}

// ClampQuality limits q to 0..100.
func ClampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

// PNGCompressionLevel maps a quality percentage onto a 0..9 compression level
// using the inverted form round((100-q)*9/100).
func PNGCompressionLevel(quality int) int {
	q := ClampQuality(quality)
	return int(math.Floor(float64(100-q)*9/100 + 0.5))
}

// pngLevel maps a 0..9 level onto the levels Go's encoder distinguishes.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// Detect sniffs the format of data.
func Detect(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", errors.Wrap(ErrDecodeFailed, "empty input")
	}
	return FormatFromMIME(mimetype.Detect(data).String())
}

// Decode detects and decodes data.
func Decode(data []byte) (image.Image, Format, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, "", err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(ErrDecodeFailed, "%s: %v", format, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", errors.Wrapf(ErrDecodeFailed, "%s: empty image", format)
	}
	return img, format, nil
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (image.Image, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open image")
	}
	return Decode(data)
}

// Encode writes img to w in format f. quality is clamped to 0..100.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	if img == nil || img.Bounds().Empty() {
		return errors.Wrap(ErrEncodeFailed, "empty canvas")
	}
	q := ClampQuality(quality)

	var err error
	switch f {
	case JPEG:
		if q < 1 {
			q = 1
		}
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	case PNG:
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(PNGCompressionLevel(q))))
	case GIF:
		err = imaging.Encode(w, img, imaging.GIF)
	case BMP:
		err = imaging.Encode(w, img, imaging.BMP)
	case WebP:
		err = webp.Encode(w, img, &webp.Options{Quality: float32(q)})
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", string(f))
	}
	if err != nil {
		return errors.Wrapf(ErrEncodeFailed, "%s: %v", f, err)
	}
	return nil
}

// EncodeBytes encodes img into a new byte slice.
func EncodeBytes(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path. When override is false an existing file is
// left untouched and ErrDestinationExists is returned.
func WriteFile(path string, data []byte, override bool) error {
	if path == "" {
		return errors.Wrap(ErrDestinationDir, "empty destination path")
	}
	dir := filepath.Dir(path)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return errors.Wrapf(ErrDestinationDir, "%s", dir)
	}
	if !override {
		if _, err := os.Stat(path); err == nil {
			return errors.Wrapf(ErrDestinationExists, "%s", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write image")
	}
	return nil
}
