// Package codec decodes source bytes into images and encodes rendered canvases
// into their output format.
//
// Supported formats are JPEG, PNG, GIF, WebP and BMP. Input formats are detected
// from content (MIME sniffing), never from file names. Quality is expressed as
// a percentage 0..100 for every format and mapped onto each encoder:
//
//   - JPEG: used as-is (minimum 1)
//   - WebP: lossy quality factor
//   - PNG: inverted into a zlib compression level, round((100-q)*9/100), so a
//     higher quality means less compression. PNG output defaults to quality 0
//     (level 9) because lossless PNG at quality 100 produces very large files.
//   - GIF, BMP: ignored
package codec
