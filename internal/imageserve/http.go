package imageserve

import (
	"net/http"

	"github.com/pierrre/imageserver"
	imageserver_http "github.com/pierrre/imageserver/http"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/logging"
)

// QueryParser copies the render params from the query string. Values stay
// strings; ParseConfig converts them.
type QueryParser struct{}

// Parse implements imageserver_http.Parser.
func (QueryParser) Parse(req *http.Request, params imageserver.Params) error {
	query := req.URL.Query()
	for _, keys := range [][]string{intParams, stringParams} {
		for _, key := range keys {
			if query.Has(key) {
				params.Set(key, query.Get(key))
			}
		}
	}
	return nil
}

// Resolve implements imageserver_http.Parser.
func (QueryParser) Resolve(param string) string {
	for _, keys := range [][]string{intParams, stringParams} {
		for _, key := range keys {
			if key == param {
				return key
			}
		}
	}
	return ""
}

// NewHTTPHandler serves GET /<source>?width=..&format=.. from server.
// Internal errors are logged; param and image errors become 400 responses.
func NewHTTPHandler(server imageserver.Server, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)
	return &imageserver_http.Handler{
		Parser: imageserver_http.ListParser([]imageserver_http.Parser{
			&imageserver_http.SourcePathParser{},
			QueryParser{},
		}),
		Server: server,
		ErrorFunc: func(err error, req *http.Request) {
			logger.Error("image request failed", zap.String("url", req.URL.String()), zap.Error(err))
		},
	}
}
