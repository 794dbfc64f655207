package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objectAPI
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_PutOpenDelete(t *testing.T) {
	objs := newFakeObjects()
	s := &S3{client: objs, bucket: "contracts"}
	ctx := context.Background()

	n, err := s.Put(ctx, "archive/a.pdf", bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []byte("abc"), objs.objects["contracts/archive/a.pdf"])
	assert.Equal(t, "abc", readAll(t, s, "archive/a.pdf"))

	require.NoError(t, s.Delete(ctx, "archive/a.pdf"))
	_, err = s.Open(ctx, "archive/a.pdf")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestS3_AdoptRemovesLocalFile(t *testing.T) {
	objs := newFakeObjects()
	s := &S3{client: objs, bucket: "b"}
	src := filepath.Join(t.TempDir(), "staged.pdf")
	require.NoError(t, os.WriteFile(src, []byte("bytes"), 0o600))

	require.NoError(t, s.Adopt(context.Background(), "archive/x.pdf", src))
	assert.NoFileExists(t, src)
	assert.Equal(t, []byte("bytes"), objs.objects["b/archive/x.pdf"])
}

func TestS3_AdoptKeepsLocalFileOnFailure(t *testing.T) {
	objs := newFakeObjects()
	objs.putErr = errors.New("bucket offline")
	s := &S3{client: objs, bucket: "b"}
	src := filepath.Join(t.TempDir(), "staged.pdf")
	require.NoError(t, os.WriteFile(src, []byte("bytes"), 0o600))

	err := s.Adopt(context.Background(), "archive/x.pdf", src)
	require.Error(t, err)
	assert.FileExists(t, src)

	err = s.Adopt(context.Background(), "archive/y.pdf", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewS3_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	_, err := NewS3(context.Background(), S3Options{Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config")
}

func TestNewS3_AppliesEndpointAndPathStyle(t *testing.T) {
	orig := newS3ClientFromConfig
	var applied s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&applied)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}
	t.Cleanup(func() { newS3ClientFromConfig = orig })

	s, err := NewS3(context.Background(), S3Options{
		AccessKey: "admin", SecretKey: "secret", Bucket: "vault",
		Region: "us-east-1", BaseEndpoint: "http://127.0.0.1:9000/",
	})
	require.NoError(t, err)
	assert.Equal(t, "vault", s.bucket)
	assert.True(t, applied.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000/", aws.ToString(applied.BaseEndpoint))

	_, err = NewS3(context.Background(), S3Options{})
	require.Error(t, err, "bucket is required")
}
