// Package archive mirrors receipt files to S3-compatible object storage
// (Cloudflare R2, MinIO, AWS S3) for the statutory seven-year retention.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"btw-buddy/internal/config"
	"btw-buddy/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned by New when no bucket is configured
var ErrDisabled = errors.New("receipt archive not configured")

type Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// New connects to the bucket in cfg.Archive
func New(ctx context.Context, cfg *config.Config) (*Archive, error) {
	ac := cfg.Archive
	if ac.Bucket == "" {
		return nil, ErrDisabled
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(ac.Region),
	}
	if ac.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ac.AccessKey, ac.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure archive client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ac.Endpoint != "" {
			o.BaseEndpoint = aws.String(ac.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Archive{client: client, bucket: ac.Bucket, prefix: strings.Trim(ac.Prefix, "/")}, nil
}

// ReceiptKey is the object key for a receipt: <prefix>/receipts/2024/07/9-bon.pdf
func (a *Archive) ReceiptKey(id int, filename string, uploaded time.Time) string {
	local := timeutil.ToLocal(uploaded)
	name := fmt.Sprintf("%d-%s", id, path.Base(strings.ReplaceAll(filename, "\\", "/")))
	return path.Join(a.prefix, "receipts", local.Format("2006"), local.Format("01"), name)
}

// Put uploads content under key
func (a *Archive) Put(ctx context.Context, key string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key
func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Ping checks that the bucket is reachable with the configured credentials
func (a *Archive) Ping(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		return fmt.Errorf("archive bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Bucket is the configured bucket name
func (a *Archive) Bucket() string {
	return a.bucket
}
