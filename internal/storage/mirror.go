package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Mirror copies stored files to a secondary location. Keys are the store-relative paths.
type Mirror interface {
	Put(ctx context.Context, key, localPath, contentType string) error
	Remove(ctx context.Context, keys ...string) error
}

type NopMirror struct{}

func (NopMirror) Put(context.Context, string, string, string) error { return nil }
func (NopMirror) Remove(context.Context, ...string) error { return nil }

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinioMirror struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewMinioMirror connects to the endpoint and creates the bucket if it does not exist.
func NewMinioMirror(ctx context.Context, cfg MinioConfig, log *zap.Logger) (*MinioMirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("minio bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &MinioMirror{client: client, bucket: cfg.Bucket, log: log}, nil
}

func (m *MinioMirror) Put(ctx context.Context, key, localPath, contentType string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("mirror put %s: %w", key, err)
	}
	return nil
}

func (m *MinioMirror) Remove(ctx context.Context, keys ...string) error {
	var first error
	for _, key := range keys {
		if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			m.log.Warn("mirror remove failed", zap.String("key", key), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
