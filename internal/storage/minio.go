package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection settings for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioService implements Service using a MinIO (or any S3-compatible) backend.
// Containers map one-to-one onto buckets.
type MinioService struct {
	client *minio.Client
}

// NewMinioService creates a MinIO client. No request is sent until a container is used.
func NewMinioService(cfg MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioService{client: client}, nil
}

// Container returns a handle for the bucket called name.
func (s *MinioService) Container(name string) Container {
	return &minioContainer{client: s.client, bucket: name}
}

// EnsureContainers creates every missing bucket in names.
func (s *MinioService) EnsureContainers(ctx context.Context, names ...string) error {
	for _, bucket := range names {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %q existence: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}
	return nil
}

type minioContainer struct {
	client *minio.Client
	bucket string
}

func (c *minioContainer) Name() string { return c.bucket }

// Upload streams reader to MinIO under key. size must be the exact byte count
// (pass -1 only if the size is genuinely unknown; MinIO will buffer it).
func (c *minioContainer) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentTypeOrDefault(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, translateMinioError(err))
	}
	return nil
}

func (c *minioContainer) Download(ctx context.Context, key string) (*Object, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, translateMinioError(err))
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy; the first read surfaces missing keys.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, translateMinioError(err))
	}
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat object %q: %w", key, translateMinioError(err))
	}
	return &Object{Data: data, ContentType: stat.ContentType}, nil
}

func translateMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Join(ErrNotFound, err)
	}
	return err
}
