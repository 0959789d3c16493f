// Package objectstore adapts an S3-compatible bucket (Cloudflare R2, MinIO,
// or AWS S3) for the intake API's presigned upload/download flow and the
// worker's read/write/delete of original and output bytes.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client wraps an s3.Client against a configured endpoint/bucket.
type Client struct {
	s3         *s3.Client
	presign    *s3.PresignClient
	bucket     string
	publicBase string
}

// Config carries the connection details for the backing bucket.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// New creates a Client configured against an S3-compatible endpoint.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: missing endpoint/credentials/bucket configuration")
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})

	return &Client{
		s3:         client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
	}, nil
}

// PresignedUpload is the wire contract the intake API returns from its
// upload-intent endpoint: a PUT URL constrained by content type (it carries
// no size limit), alongside the key the client must echo back on confirm.
type PresignedUpload struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// PresignUpload creates a time-limited PUT URL for key. A presigned PUT has
// no mechanism to cap the body size the client actually sends — signing a
// Content-Length only pins an exact value, not a ceiling — so the size cap
// is enforced where it can actually be enforced: the confirm step stats the
// object that was really stored (Client.Stat) and rejects/deletes it if it
// exceeds the cap, rather than trusting a client-declared value.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (*PresignedUpload, error) {
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("objectstore: presign upload: %w", err)
	}

	return &PresignedUpload{
		URL:       req.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// PresignDownload creates a time-limited GET URL for key, used to hand the
// client a link to the enhanced output without routing bytes through the API.
func (c *Client) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign download: %w", err)
	}
	return req.URL, nil
}

// Exists reports whether key has been uploaded, used by the confirm-upload
// endpoint to verify the client actually completed its presigned PUT.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("objectstore: head object: %w", err)
	}
	return true, nil
}

// Stat returns the size in bytes of the stored object at key, used to
// enforce an upload's size cap against what the store actually received
// rather than whatever size a client claims.
func (c *Client) Stat(ctx context.Context, key string) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("objectstore: stat object: %w", err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

// Get downloads the full object at key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read object body: %w", err)
	}
	return data, nil
}

// Put uploads data to key, overwriting whatever was there.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put object: %w", err)
	}
	return nil
}

// Delete removes a single object. Missing keys are not treated as errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete object: %w", err)
	}
	return nil
}

// Move copies src to dst then deletes src, used to relocate a confirmed
// upload out of a scratch prefix if the intake flow stages uploads first.
func (c *Client) Move(ctx context.Context, srcKey, dstKey string) error {
	copySource := fmt.Sprintf("%s/%s", c.bucket, srcKey)
	_, err := c.s3.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return fmt.Errorf("objectstore: copy object: %w", err)
	}
	return c.Delete(ctx, srcKey)
}

// DeletePrefix lists and removes every object under prefix, batching
// DeleteObjects calls in groups of 1000 (the S3 API limit). Used by shoot
// deletion cleanup, which is best-effort and never blocks the DB cascade.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("objectstore: list prefix %q: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			ids[i] = types.ObjectIdentifier{Key: obj.Key}
		}
		_, err = c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			return fmt.Errorf("objectstore: batch delete under %q: %w", prefix, err)
		}
	}
	return nil
}
