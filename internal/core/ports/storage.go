package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrBucketRequired is returned when neither a bucket nor a default bucket is set.
	ErrBucketRequired = errors.New("bucket name is not defined")
)

// ObjectInfo describes a stored object independent of the provider.
type ObjectInfo struct {
	Bucket       string            `json:"bucket"`
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	LastModified time.Time         `json:"last_modified,omitempty"`
	URL          string            `json:"url,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// UploadInput describes an object to write. An empty Bucket selects the store default.
type UploadInput struct {
	Bucket       string
	Key          string
	Body         io.Reader
	ContentType  string
	ACL          string
	CacheControl string
}

// ObjectStore is the provider-neutral object storage contract.
type ObjectStore interface {
	Upload(ctx context.Context, in *UploadInput) (*ObjectInfo, error)
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	DeleteMany(ctx context.Context, bucket string, keys []string) error
}
