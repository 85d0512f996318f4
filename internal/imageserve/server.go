package imageserve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"sync"

	"github.com/pierrre/imageserver"
	imageserver_cache "github.com/pierrre/imageserver/cache"
	"github.com/pierrre/imageserver/cache/memory"
)

// RenderServer fetches a source image and passes it through a handler.
type RenderServer struct {
	Source  imageserver.Server
	Handler imageserver.Handler
}

// Get implements imageserver.Server.
func (s *RenderServer) Get(params imageserver.Params) (*imageserver.Image, error) {
	im, err := s.Source.Get(params)
	if err != nil {
		return nil, err
	}
	return s.Handler.Handle(im, params)
}

// NewServer chains source and handler and caches rendered images in memory,
// keyed by every param. cacheSize is the cache bound in bytes; 0 disables
// the cache.
func NewServer(source imageserver.Server, handler imageserver.Handler, cacheSize int64) imageserver.Server {
	var srv imageserver.Server = &RenderServer{Source: source, Handler: handler}
	if cacheSize <= 0 {
		return srv
	}
	return &imageserver_cache.Server{
		Server:       srv,
		Cache:        memory.New(cacheSize),
		KeyGenerator: NewParamsHashKeyGenerator(),
	}
}

// NewParamsHashKeyGenerator hashes the sorted params, so two requests that
// differ only in param order share a cache entry.
func NewParamsHashKeyGenerator() imageserver_cache.KeyGenerator {
	pool := &sync.Pool{
		New: func() interface{} {
			return sha256.New()
		},
	}
	return imageserver_cache.KeyGeneratorFunc(func(params imageserver.Params) string {
		h := pool.Get().(hash.Hash)
		defer pool.Put(h)
		h.Reset()

		keys := params.Keys()
		sort.Strings(keys)
		for _, key := range keys {
			value, _ := params.Get(key)
			io.WriteString(h, fmt.Sprintf("%s=%v;", key, value))
		}
		return hex.EncodeToString(h.Sum(nil))
	})
}
