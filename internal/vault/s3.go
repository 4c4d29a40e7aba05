package vault

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/reverie-app/reverie-api/internal/config"
)

// s3Client is the subset of the S3 API the vault uses, extracted so tests
// can substitute a fake.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Vault stores archives in an S3-compatible bucket. Path-style
// addressing keeps it working against MinIO and other self-hosted
// endpoints.
type S3Vault struct {
	client s3Client
	bucket string
}

// NewS3Vault creates a vault backed by the configured bucket.
func NewS3Vault(cfg config.S3Config) (*S3Vault, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 vault requires bucket, access key, and secret key")
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Vault{
		client: s3.New(opts),
		bucket: cfg.Bucket,
	}, nil
}

// Put uploads the archive content under key.
func (v *S3Vault) Put(ctx context.Context, key string, content io.Reader, size int64) error {
	_, err := v.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(key),
		Body:          content,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", key, err)
	}
	return nil
}

// Get downloads the archive stored under key.
func (v *S3Vault) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, key)
		}
		return nil, fmt.Errorf("failed to download archive %s: %w", key, err)
	}
	return result.Body, nil
}

// Delete removes the archive stored under key.
func (v *S3Vault) Delete(ctx context.Context, key string) error {
	_, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete archive %s: %w", key, err)
	}
	return nil
}

var _ Vault = (*S3Vault)(nil)
