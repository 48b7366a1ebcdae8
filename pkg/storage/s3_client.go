package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Client interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error)
}

type awsS3Client struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
}

// NewS3Client builds an S3 client from the ambient AWS config. When
// S3_ENDPOINT is set (LocalStack, MinIO) requests are routed there with
// static test credentials.
func NewS3Client(ctx context.Context) (S3Client, error) {
	var cfg aws.Config
	var err error

	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("us-east-1"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		)
		if err == nil {
			client := s3.NewFromConfig(cfg, func(o *s3.Options) {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			})
			return &awsS3Client{
				client:    client,
				uploader:  manager.NewUploader(client),
				presigner: s3.NewPresignClient(client),
			}, nil
		}
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &awsS3Client{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (c *awsS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (c *awsS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (c *awsS3Client) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

func (c *awsS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
