package imageserve

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrre/imageserver"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-render-mcp/internal/codec"
)

// sourceKey returns the cleaned "source" param without a leading slash.
// Cleaning against "/" removes every ".." segment, so the key can never
// climb above the root it is joined to.
func sourceKey(params imageserver.Params) (string, error) {
	source, ok, err := stringParam(params, ParamSource)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", paramError(ParamSource, "missing")
	}
	key := strings.TrimPrefix(path.Clean("/"+source), "/")
	if key == "" {
		return "", paramError(ParamSource, "empty")
	}
	return key, nil
}

// sourceImage sniffs data and wraps it in an imageserver.Image.
func sourceImage(data []byte) (*imageserver.Image, error) {
	format, err := codec.Detect(data)
	if err != nil {
		return nil, &imageserver.ImageError{Message: err.Error()}
	}
	return &imageserver.Image{Format: string(format), Data: data}, nil
}

// FileSource serves source images from a directory.
type FileSource struct {
	Root string
}

// Get implements imageserver.Server.
func (s *FileSource) Get(params imageserver.Params) (*imageserver.Image, error) {
	key, err := sourceKey(params)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, paramError(ParamSource, "not found")
		}
		return nil, errors.Wrapf(err, "failed to read source %q", key)
	}
	return sourceImage(data)
}

// ObjectStore opens objects by bucket and key.
type ObjectStore interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ErrObjectNotFound is returned by an ObjectStore for a missing key.
var ErrObjectNotFound = errors.New("object not found")

type minioStore struct {
	client *minio.Client
}

// NewMinioStore adapts a MinIO client to ObjectStore.
func NewMinioStore(client *minio.Client) ObjectStore {
	return &minioStore{client: client}
}

func (m *minioStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinioError(err)
	}
	return obj, nil
}

func mapMinioError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Wrap(ErrObjectNotFound, err.Error())
	}
	return err
}

// NewMinioClient connects to an S3-compatible endpoint with static credentials.
func NewMinioClient(endpoint, accessKey, secretKey string, secure bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create minio client for %s", endpoint)
	}
	return client, nil
}

// MinioSource serves source images from an object-storage bucket.
type MinioSource struct {
	Store  ObjectStore
	Bucket string
}

// NewMinioSource returns a source reading keys from bucket.
func NewMinioSource(store ObjectStore, bucket string) *MinioSource {
	return &MinioSource{Store: store, Bucket: bucket}
}

// Get implements imageserver.Server.
func (s *MinioSource) Get(params imageserver.Params) (*imageserver.Image, error) {
	key, err := sourceKey(params)
	if err != nil {
		return nil, err
	}
	obj, err := s.Store.Open(context.Background(), s.Bucket, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, paramError(ParamSource, "not found")
		}
		return nil, errors.Wrapf(err, "failed to open %s/%s", s.Bucket, key)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s/%s", s.Bucket, key)
	}
	return sourceImage(buf.Bytes())
}
