package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config holds object storage settings
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base under which uploaded objects are reachable,
	// e.g. "https://cdn.example.com/alertx-evidence".
	PublicURL string
}

// S3Storage uploads evidence images to an S3-compatible bucket and returns
// durable public URLs
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// NewS3Storage creates a storage adapter for the configured bucket
func NewS3Storage(ctx context.Context, cfg Config, logger *slog.Logger) (*S3Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

// Upload streams the image into the bucket under a date-partitioned key and
// returns the durable URL
func (s *S3Storage) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key := objectKey(filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("image upload failed",
			slog.String("bucket", s.bucket),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("upload image: %w", err)
	}

	url := s.publicURL + "/" + key
	s.logger.Debug("image uploaded", slog.String("url", url))
	return url, nil
}

func objectKey(filename string) string {
	d := time.Now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 {
		ext = ext[:8]
	}
	return fmt.Sprintf("reports/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
