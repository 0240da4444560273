package storage

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
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var errNotConfigured = errors.New("storage not initialized")

// Storage keeps shared clip exports in an S3-compatible bucket.
type Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

type Config struct {
	Endpoint string
	// PublicEndpoint is the host put into presigned links. Defaults to Endpoint.
	PublicEndpoint string
	Bucket         string
	AccessKey      string
	SecretKey      string
	Region         string
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "eu-central-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	public := cfg.PublicEndpoint
	if public == "" {
		public = cfg.Endpoint
	}

	return &Storage{
		client:    pathStyleClient(awsCfg, cfg.Endpoint),
		presigner: s3.NewPresignClient(pathStyleClient(awsCfg, public)),
		bucket:    cfg.Bucket,
	}, nil
}

// Garage and MinIO only route path-style requests.
func pathStyleClient(awsCfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
}

// PutObject uploads body under key. size may be negative when unknown.
func (s *Storage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s == nil {
		return errNotConfigured
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// PresignDownload returns a time-limited GET link that makes browsers save
// the object as filename.
func (s *Storage) PresignDownload(ctx context.Context, key string, filename string, expiry time.Duration) (string, error) {
	if s == nil {
		return "", errNotConfigured
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(attachment(filename)),
		ResponseContentType:        aws.String("text/csv; charset=utf-8"),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func attachment(filename string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`attachment; filename="%s"`, clean)
}

func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	if s == nil {
		return errNotConfigured
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket when HeadBucket cannot see it.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ExpireObjects installs a lifecycle rule deleting objects under prefix after
// days. The cleanup loop remains the primary mechanism; not every S3-compatible
// server supports lifecycle rules.
func (s *Storage) ExpireObjects(ctx context.Context, prefix string, days int32) error {
	if days < 1 {
		days = 1
	}
	_, err := s.client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(s.bucket),
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: []types.LifecycleRule{{
				ID:         aws.String("expire-" + strings.Trim(prefix, "/")),
				Status:     types.ExpirationStatusEnabled,
				Filter:     &types.LifecycleRuleFilter{Prefix: aws.String(prefix)},
				Expiration: &types.LifecycleExpiration{Days: aws.Int32(days)},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("put lifecycle for %s: %w", prefix, err)
	}
	return nil
}
