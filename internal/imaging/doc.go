// Package imaging composites source images onto output canvases.
//
// The central type is Compositor. Given a source image, an optional crop
// region, a geometry.Result and a Background it:
//
//  1. clamps the crop region to the source and crops (ErrInvalidCrop when
//     nothing is left)
//  2. allocates the canvas within Limits (ErrAllocationFailed)
//  3. fills the canvas with the background
//  4. scales the source to the content size with a box filter and places it
//     at the content offset (ErrResampleFailed)
//  5. runs the filter pipeline in order (*FilterError, matching ErrFilterFailed)
//
// The finished canvas is returned as an *image.NRGBA. Encoding is left to the
// codec package.
//
// # Background Semantics
//
// An opaque background is filled solid and the content is alpha-blended over
// it, so the canvas never carries transparency. A translucent background is
// filled with its alpha and content pixels are copied onto it unblended, so
// transparent regions of the source stay transparent in the output.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the
// top-left corner. Rect values are {X, Y, Width, Height} in source pixels.
//
// # Supporting Operations
//
//   - ClampRect and CropFromPercent turn caller crop requests into pixel regions
//   - AutoCrop finds the region inside a uniform border
//   - ParseBackground and MainColorBackground build backgrounds
//   - ImageCache decodes and caches images by path for repeated use
//
// # Thread Safety
//
// Compositor, AutoCrop and the color helpers hold no shared state and may be
// called concurrently. ImageCache is safe for concurrent use; the images it
// returns are shared and must not be modified.
package imaging
