package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig describes an S3-compatible bucket used as the upload store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStorage is a StorageEngine implementation that stores each upload as
// an object named after its storage name in a single bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioStorage creates a MinioStorage for the bucket described by cfg.
// No network calls are made until Init.
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("S3 endpoint must not be empty")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket must not be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// Bucket returns the name of the bucket uploads are stored in.
func (s *MinioStorage) Bucket() string {
	return s.bucket
}

func (s *MinioStorage) Init(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		// Another instance may have created it in the meantime.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}

	return nil
}

func (s *MinioStorage) PutFile(ctx context.Context, name string, contentType string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q to bucket %q: %w", name, s.bucket, err)
	}

	return nil
}

func (s *MinioStorage) GetFile(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read object %q: %w", name, err)
	}

	return data, nil
}
