// Package s3 holds the object storage client for clinical files.
// Ovelia runs against OVHcloud object storage in the Beauharnois
// region, which keeps client documents on Quebec soil. Any
// S3-compatible endpoint works.
package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/oveliahealth/ovelia_backend/config"
)

const defaultPresignTTL = 5 * time.Minute

// Client is a bucket-scoped wrapper around the AWS S3 client. Every
// object is written private; reads go out as presigned URLs, the API
// never proxies file bytes.
type Client struct {
	api        *s3.Client
	presign    *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// New assembles the client without dialing anything. Bad credentials
// or a bad endpoint surface on the first call.
func New(cfg config.S3Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(),
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// OVH object storage does not resolve bucket subdomains.
		o.UsePathStyle = true
	})

	ttl := time.Duration(cfg.PresignTTLSec) * time.Second
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &Client{
		api:        api,
		presign:    s3.NewPresignClient(api),
		bucket:     cfg.Bucket,
		presignTTL: ttl,
	}, nil
}

// Upload stores one object under key. Keys follow the
// {entity}/{clinic_id}/{uuid}.{ext} convention.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		ACL:           types.ObjectCannedACLPrivate,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("s3: put %q: %w", key, err)
	}
	return nil
}

// PresignDownload returns a GET URL that expires after the configured
// TTL.
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("s3: presign %q: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes one object. DeleteObject succeeds even when the key
// is already gone.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %q: %w", key, err)
	}
	return nil
}
