// Package imageserve exposes the renderer as a github.com/pierrre/imageserver
// pipeline.
//
// A source (FileSource or MinioSource) loads the bytes named by the "source"
// param, Handler renders them with the remaining params, and NewServer puts
// an in-memory cache in front of the pair. NewHTTPHandler serves the result:
//
//	GET /photos/cat.jpg?width=300&height=200&fit=cover&format=webp
package imageserve
