// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const minMultipartSize = 12 << 20

var (
	ErrNotConfigured = errors.New("object storage is not configured")
	ErrNoSuchKey     = errors.New("object not found")
)

type S3Client struct {
	C      *s3.Client
	Bucket *string

	region   string
	endpoint string
}

// NewS3 builds a client from the aws.* config keys and makes sure the
// bucket exists. Returns ErrNotConfigured when no bucket is set.
func NewS3(ctx context.Context) (*S3Client, error) {
	if viper.GetString("aws.s3.bucket") == "" {
		return nil, ErrNotConfigured
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(viper.GetString("aws.region")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("aws.access_key_id"),
			viper.GetString("aws.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config, %w", err)
	}

	bucket := aws.String(viper.GetString("aws.s3.bucket"))
	endpoint := viper.GetString("aws.s3.endpoint")

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = viper.GetBool("aws.s3.force_path_style")
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:        client,
		Bucket:   bucket,
		region:   cfg.Region,
		endpoint: endpoint,
	}, nil
}

// Configured is safe to call on a nil client
func (s *S3Client) Configured() bool {
	return s != nil
}

// Put uploads body under key. Objects above the multipart threshold go
// through the upload manager.
func (s *S3Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	input := &s3.PutObjectInput{
		Bucket:      s.Bucket,
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}

	var err error
	if size > minMultipartSize {
		uploader := manager.NewUploader(s.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = uploader.Upload(ctx, input)
	} else {
		input.ContentLength = aws.Int64(size)
		_, err = s.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s, %w", key, err)
	}

	zap.L().Debug("Uploaded object", zap.String("key", key), zap.Int64("size", size))
	return nil
}

func (s *S3Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	out, err := s.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, ErrNoSuchKey
		}

		return nil, fmt.Errorf("failed to fetch %s, %w", key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s, %w", key, err)
	}

	return b, nil
}

// List returns every key under prefix
func (s *S3Client) List(ctx context.Context, prefix string) ([]string, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	var keys []string

	p := s3.NewListObjectsV2Paginator(s.C, &s3.ListObjectsV2Input{
		Bucket: s.Bucket,
		Prefix: aws.String(prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s, %w", prefix, err)
		}

		for _, o := range page.Contents {
			keys = append(keys, aws.ToString(o.Key))
		}
	}

	return keys, nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s, %w", key, err)
	}

	return nil
}

// URL is the public address of key
func (s *S3Client) URL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), *s.Bucket, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", *s.Bucket, s.region, key)
}

// Ping checks the bucket is still reachable
func (s *S3Client) Ping(ctx context.Context) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.C.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: s.Bucket})
	return err
}
