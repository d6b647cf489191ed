package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// BucketInfo describes a bucket returned by ListBuckets.
type BucketInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// S3Store implements ports.ObjectStore on Amazon S3 or any S3 compatible endpoint.
type S3Store struct {
	client        s3API
	defaultBucket string
	defaultACL    string
	region        string
	logger        *logrus.Logger
}

// NewS3Store builds an S3 client from the default AWS credential chain. Static keys and
// a custom endpoint from cfg take precedence when set.
func NewS3Store(ctx context.Context, cfg *config.S3Config, logger *logrus.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg, logger), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client s3API, cfg *config.S3Config, logger *logrus.Logger) *S3Store {
	acl := cfg.DefaultACL
	if acl == "" {
		acl = string(types.ObjectCannedACLPrivate)
	}
	return &S3Store{client: client, defaultBucket: cfg.Bucket, defaultACL: acl, region: cfg.Region, logger: logger}
}

func (s *S3Store) bucket(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if s.defaultBucket != "" {
		return s.defaultBucket, nil
	}
	return "", ports.ErrBucketRequired
}

func (s *S3Store) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	buckets := make([]BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, BucketInfo{Name: aws.ToString(b.Name), CreatedAt: aws.ToTime(b.CreationDate)})
	}
	return buckets, nil
}

// CreateBucket creates name with the given canned ACL, or the store default.
func (s *S3Store) CreateBucket(ctx context.Context, name, acl string) error {
	if name == "" {
		return ports.ErrBucketRequired
	}
	if acl == "" {
		acl = s.defaultACL
	}
	in := &s3.CreateBucketInput{Bucket: aws.String(name), ACL: types.BucketCannedACL(acl)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	s.log().WithFields(logrus.Fields{"bucket": name, "acl": acl}).Info("bucket created")
	return nil
}

func (s *S3Store) DeleteBucket(ctx context.Context, name string) error {
	if name == "" {
		return ports.ErrBucketRequired
	}
	if _, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	s.log().WithField("bucket", name).Info("bucket deleted")
	return nil
}

func (s *S3Store) Upload(ctx context.Context, in *ports.UploadInput) (*ports.ObjectInfo, error) {
	if in == nil || in.Key == "" || in.Body == nil {
		return nil, fmt.Errorf("upload requires a key and a body")
	}
	bucket, err := s.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}

	// the SDK signs the payload, which needs a seekable body
	body, size, err := seekable(in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload body: %w", err)
	}
	acl := in.ACL
	if acl == "" {
		acl = s.defaultACL
	}
	put := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(in.Key),
		Body:   body,
		ACL:    types.ObjectCannedACL(acl),
	}
	if in.ContentType != "" {
		put.ContentType = aws.String(in.ContentType)
	}
	if in.CacheControl != "" {
		put.CacheControl = aws.String(in.CacheControl)
	}

	out, err := s.client.PutObject(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", bucket, in.Key, err)
	}
	s.log().WithFields(logrus.Fields{"bucket": bucket, "key": in.Key, "size": size}).Info("object uploaded")
	return &ports.ObjectInfo{
		Bucket:      bucket,
		Key:         in.Key,
		Size:        size,
		ContentType: in.ContentType,
		ETag:        aws.ToString(out.ETag),
		URL:         fmt.Sprintf("s3://%s/%s", bucket, in.Key),
	}, nil
}

func (s *S3Store) Download(ctx context.Context, bucket, key string) (io.ReadCloser, *ports.ObjectInfo, error) {
	bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, nil, mapS3Error(err, bucket, key)
	}
	return out.Body, &ports.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}, nil
}

func (s *S3Store) Stat(ctx context.Context, bucket, key string) (*ports.ObjectInfo, error) {
	bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, mapS3Error(err, bucket, key)
	}
	return &ports.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}, nil
}

// List returns every object under prefix, following continuation tokens.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	bucket, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var objects []ports.ObjectInfo
	p := s3.NewListObjectsV2Paginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
		}
		for _, o := range page.Contents {
			objects = append(objects, ports.ObjectInfo{
				Bucket:       bucket,
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				ETag:         aws.ToString(o.ETag),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	bucket, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return mapS3Error(err, bucket, key)
	}
	return nil
}

// DeleteMany removes keys in batches of 1000, the S3 per-request limit.
func (s *S3Store) DeleteMany(ctx context.Context, bucket string, keys []string) error {
	bucket, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	const batch = 1000
	var errs []error
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects from %s: %w", bucket, err)
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %d objects: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (s *S3Store) log() *logrus.Logger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}

func mapS3Error(err error, bucket, key string) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s/%s", ports.ErrObjectNotFound, bucket, key)
	}
	return fmt.Errorf("s3 %s/%s: %w", bucket, key, err)
}

func seekable(r io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, size, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(b), int64(len(b)), nil
}
