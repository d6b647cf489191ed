package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

const gcsDeleteConcurrency = 8

// GCSStore implements ports.ObjectStore on Google Cloud Storage. Uploaded objects are
// renamed with a timestamp and served with Cache-Control: no-cache unless the caller
// sets its own policy.
type GCSStore struct {
	client        *gcs.Client
	defaultBucket string
	logger        *logrus.Logger
	now           func() time.Time
}

// NewGCSStore creates a client from explicit credentials when configured, otherwise
// from application default credentials.
func NewGCSStore(ctx context.Context, cfg *config.GCSConfig, logger *logrus.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{client: client, defaultBucket: cfg.Bucket, logger: logger, now: time.Now}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) bucket(name string) (*gcs.BucketHandle, string, error) {
	if name == "" {
		name = s.defaultBucket
	}
	if name == "" {
		return nil, "", ports.ErrBucketRequired
	}
	return s.client.Bucket(name), name, nil
}

func (s *GCSStore) Upload(ctx context.Context, in *ports.UploadInput) (*ports.ObjectInfo, error) {
	if in == nil || in.Key == "" || in.Body == nil {
		return nil, fmt.Errorf("upload requires a key and a body")
	}
	b, bucket, err := s.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}

	name := TimestampedName(in.Key, s.now())
	w := b.Object(name).NewWriter(ctx)
	w.ContentType = in.ContentType
	w.CacheControl = in.CacheControl
	if w.CacheControl == "" {
		w.CacheControl = "no-cache"
	}
	if in.ACL == "publicRead" || in.ACL == "public-read" {
		w.PredefinedACL = "publicRead"
	}

	if _, err := io.Copy(w, in.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, name, err)
	}

	s.log().WithFields(logrus.Fields{"bucket": bucket, "key": name}).Info("object uploaded")
	return objectInfo(w.Attrs()), nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectInfo, error) {
	b, bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.Object(key).NewReader(ctx)
	if err != nil {
		return nil, nil, mapGCSError(err, bucket, key)
	}
	return r, &ports.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         r.Attrs.Size,
		ContentType:  r.Attrs.ContentType,
		LastModified: r.Attrs.LastModified,
	}, nil
}

func (s *GCSStore) Stat(ctx context.Context, bucket, key string) (*ports.ObjectInfo, error) {
	b, bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	attrs, err := b.Object(key).Attrs(ctx)
	if err != nil {
		return nil, mapGCSError(err, bucket, key)
	}
	return objectInfo(attrs), nil
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	b, bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	var objects []ports.ObjectInfo
	it := b.Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
		}
		objects = append(objects, *objectInfo(attrs))
	}
	return objects, nil
}

func (s *GCSStore) Delete(ctx context.Context, bucket, key string) error {
	b, bucket, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	if err := b.Object(key).Delete(ctx); err != nil {
		return mapGCSError(err, bucket, key)
	}
	return nil
}

// DeleteMany deletes keys concurrently; the JSON API client has no batch delete.
// Missing objects are ignored and every other failure is reported.
func (s *GCSStore) DeleteMany(ctx context.Context, bucket string, keys []string) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(gcsDeleteConcurrency)
	for _, k := range keys {
		g.Go(func() error {
			if err := s.Delete(ctx, bucket, k); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *GCSStore) log() *logrus.Logger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}

func objectInfo(attrs *gcs.ObjectAttrs) *ports.ObjectInfo {
	if attrs == nil {
		return &ports.ObjectInfo{}
	}
	return &ports.ObjectInfo{
		Bucket:       attrs.Bucket,
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		ETag:         attrs.Etag,
		LastModified: attrs.Updated,
		URL:          attrs.MediaLink,
		Metadata:     attrs.Metadata,
	}
}

func mapGCSError(err error, bucket, key string) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s/%s", ports.ErrObjectNotFound, bucket, key)
	}
	return fmt.Errorf("gcs %s/%s: %w", bucket, key, err)
}
