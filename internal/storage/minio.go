package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioUploader stores documents in an S3-compatible bucket. Stored paths are
// "<bucket>/<object>".
type MinioUploader struct {
	client *minio.Client
	bucket string
	prefix string
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

func NewMinioUploader(opts MinioOptions) (*MinioUploader, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(opts.AccessKey) == "" || strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioUploader{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// EnsureBucket creates the bucket on first start.
func (m *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MinioUploader) Upload(ctx context.Context, objectName string, contentType string, size int64, r io.Reader) (string, error) {
	if m.prefix != "" {
		objectName = m.prefix + "/" + objectName
	}
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return m.bucket + "/" + objectName, nil
}
