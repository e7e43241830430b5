package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"teamwear/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore holds modification-request attachments.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	// KeyFromURL maps a stored object URL back to its key. It reports false for
	// URLs that point somewhere else.
	KeyFromURL(rawURL string) (string, bool)
}

// S3Store talks to AWS S3 or an S3-compatible service such as MinIO.
type S3Store struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	baseURL  string
}

// NewS3Store builds the client from static credentials. A custom endpoint
// switches the client to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	var client *s3.Client
	if endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: endpoint,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.objectURL(key), nil
}

// Get returns the object body and its content type. The caller closes the body.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object from S3: %w", err)
	}

	contentType := "application/octet-stream"
	if output.ContentType != nil {
		contentType = *output.ContentType
	}
	return output.Body, contentType, nil
}

func (s *S3Store) KeyFromURL(rawURL string) (string, bool) {
	return keyFromURL(s.prefixes(), rawURL)
}

func (s *S3Store) objectURL(key string) string {
	return s.prefixes()[0] + key
}

// prefixes lists the URL forms an object of this bucket may be stored under,
// preferred form first.
func (s *S3Store) prefixes() []string {
	var out []string
	if s.baseURL != "" {
		out = append(out, s.baseURL+"/")
	}
	if s.endpoint != "" {
		out = append(out, fmt.Sprintf("%s/%s/", s.endpoint, s.bucket))
	}
	out = append(out, fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region))
	return out
}

func keyFromURL(prefixes []string, rawURL string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(rawURL, p) {
			key := strings.TrimPrefix(rawURL, p)
			if i := strings.IndexAny(key, "?#"); i >= 0 {
				key = key[:i]
			}
			if unescaped, err := url.PathUnescape(key); err == nil {
				key = unescaped
			}
			return key, key != ""
		}
	}
	return "", false
}
