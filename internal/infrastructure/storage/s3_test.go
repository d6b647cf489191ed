package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

type fakeS3 struct {
	s3API // unimplemented methods panic

	objects       map[string]string
	puts          []*s3.PutObjectInput
	created       []*s3.CreateBucketInput
	deleteBatches [][]string
	pageSize      int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, pageSize: 2}
}

func (f *fakeS3) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &s3.ListBucketsOutput{Buckets: []types.Bucket{{Name: aws.String("uploads"), CreationDate: &created}}}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, in)
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(b)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	v, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(v)),
		ContentLength: aws.Int64(int64(len(v))),
		ContentType:   aws.String("text/plain"),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	v, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(v)))}, nil
}

// ListObjectsV2 pages through sorted keys, using the next key as the continuation token.
func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
			}
		}
	}
	end := min(start+f.pageSize, len(keys))
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	var batch []string
	out := &s3.DeleteObjectsOutput{}
	for _, id := range in.Delete.Objects {
		k := aws.ToString(id.Key)
		batch = append(batch, k)
		if k == "locked" {
			out.Errors = append(out.Errors, types.Error{Key: id.Key, Message: aws.String("AccessDenied")})
			continue
		}
		delete(f.objects, k)
	}
	f.deleteBatches = append(f.deleteBatches, batch)
	return out, nil
}

func newTestS3Store(f *fakeS3, bucket string) *S3Store {
	return NewS3StoreWithClient(f, &config.S3Config{Bucket: bucket, Region: "eu-west-1"}, nil)
}

func TestS3Store_UploadDownloadStat(t *testing.T) {
	f := newFakeS3()
	s := newTestS3Store(f, "uploads")
	ctx := context.Background()

	info, err := s.Upload(ctx, &ports.UploadInput{Key: "a.txt", Body: strings.NewReader("hello"), ContentType: "text/plain"})
	require.NoError(t, err)
	require.Equal(t, "uploads", info.Bucket)
	require.Equal(t, int64(5), info.Size)
	require.Equal(t, `"etag"`, info.ETag)
	require.Equal(t, types.ObjectCannedACLPrivate, f.puts[0].ACL)
	require.Equal(t, "text/plain", aws.ToString(f.puts[0].ContentType))

	body, meta, err := s.Download(ctx, "", "a.txt")
	require.NoError(t, err)
	defer body.Close()
	b, _ := io.ReadAll(body)
	require.Equal(t, "hello", string(b))
	require.Equal(t, int64(5), meta.Size)

	st, err := s.Stat(ctx, "", "a.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), st.Size)
}

func TestS3Store_NotFound(t *testing.T) {
	s := newTestS3Store(newFakeS3(), "uploads")
	_, _, err := s.Download(context.Background(), "", "missing")
	require.True(t, errors.Is(err, ports.ErrObjectNotFound))
	_, err = s.Stat(context.Background(), "", "missing")
	require.True(t, errors.Is(err, ports.ErrObjectNotFound))
}

func TestS3Store_BucketRequired(t *testing.T) {
	s := newTestS3Store(newFakeS3(), "")
	ctx := context.Background()

	_, err := s.Upload(ctx, &ports.UploadInput{Key: "a", Body: strings.NewReader("x")})
	require.True(t, errors.Is(err, ports.ErrBucketRequired))
	_, err = s.List(ctx, "", "")
	require.True(t, errors.Is(err, ports.ErrBucketRequired))
	require.True(t, errors.Is(s.CreateBucket(ctx, "", ""), ports.ErrBucketRequired))
	require.True(t, errors.Is(s.DeleteBucket(ctx, ""), ports.ErrBucketRequired))
}

func TestS3Store_ListFollowsPages(t *testing.T) {
	f := newFakeS3()
	for i := 0; i < 5; i++ {
		f.objects[fmt.Sprintf("img/%d.png", i)] = "x"
	}
	f.objects["doc/readme"] = "x"
	s := newTestS3Store(f, "uploads")

	objs, err := s.List(context.Background(), "", "img/")
	require.NoError(t, err)
	require.Len(t, objs, 5)
	require.Equal(t, "img/4.png", objs[4].Key)
}

func TestS3Store_DeleteManyReportsFailures(t *testing.T) {
	f := newFakeS3()
	f.objects["a"], f.objects["b"], f.objects["locked"] = "1", "2", "3"
	s := newTestS3Store(f, "uploads")

	err := s.DeleteMany(context.Background(), "", []string{"a", "b", "locked"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AccessDenied")
	require.NotContains(t, f.objects, "a")
	require.Contains(t, f.objects, "locked")
	require.Len(t, f.deleteBatches, 1)
}

func TestS3Store_BucketOperations(t *testing.T) {
	f := newFakeS3()
	s := newTestS3Store(f, "")
	ctx := context.Background()

	buckets, err := s.ListBuckets(ctx)
	require.NoError(t, err)
	require.Equal(t, "uploads", buckets[0].Name)

	require.NoError(t, s.CreateBucket(ctx, "media", "public-read"))
	require.Equal(t, types.BucketCannedACL("public-read"), f.created[0].ACL)
	require.Equal(t, types.BucketLocationConstraint("eu-west-1"), f.created[0].CreateBucketConfiguration.LocationConstraint)
}
