package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const contentTypeKey = "contentType"

// S3Options configures an S3-compatible backend
type S3Options struct {
	Endpoint  string // e.g. "http://localhost:9000" for MinIO, empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // Key prefix inside the bucket
}

// S3Filesystem implements Filesystem using S3-compatible APIs (works with AWS S3, Cloudflare R2, MinIO)
type S3Filesystem struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Filesystem creates a new S3-compatible storage client
func NewS3Filesystem(opts S3Options, logger *slog.Logger) (*S3Filesystem, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}

	region := opts.Region
	if region == "" {
		region = "auto" // Default for R2
	}

	s3Opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true, // Required for MinIO and some S3-compatible services
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(opts.Endpoint)
	}

	return &S3Filesystem{
		client: s3.New(s3Opts),
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger,
	}, nil
}

func (s *S3Filesystem) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Write uploads content to the object at path
func (s *S3Filesystem) Write(ctx context.Context, path string, content []byte, overwrite bool) error {
	key := s.key(path)

	if !overwrite {
		exists, err := s.exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("object uploaded", "bucket", s.bucket, "key", key, "size", len(content))
	return nil
}

// Delete removes the object at path. S3 does not report whether the
// object existed, so the result is always RemoveUnknown.
func (s *S3Filesystem) Delete(ctx context.Context, path string) (RemoveResult, error) {
	key := s.key(path)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return RemoveUnknown, fmt.Errorf("failed to delete object: %w", err)
	}

	s.logger.Debug("object deleted", "bucket", s.bucket, "key", key)
	return RemoveUnknown, nil
}

// Read streams the object at path
func (s *S3Filesystem) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return out.Body, nil
}

// SetMetadata replaces the object's metadata by copying it onto itself.
// The contentType key becomes the object's Content-Type.
func (s *S3Filesystem) SetMetadata(ctx context.Context, path string, metadata map[string]string) error {
	key := s.key(path)

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(s.bucket, key)),
		MetadataDirective: types.MetadataDirectiveReplace,
		Metadata:          map[string]string{},
	}
	// Empty values are dropped; the replace directive clears them
	for k, v := range metadata {
		if v == "" {
			continue
		}
		if k == contentTypeKey {
			input.ContentType = aws.String(v)
			continue
		}
		input.Metadata[k] = v
	}

	if _, err := s.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("failed to set object metadata: %w", err)
	}
	return nil
}

// Metadata returns the object's user metadata plus its content type
func (s *S3Filesystem) Metadata(ctx context.Context, path string) (map[string]string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head object: %w", err)
	}

	metadata := make(map[string]string, len(out.Metadata)+1)
	for k, v := range out.Metadata {
		metadata[k] = v
	}
	if out.ContentType != nil {
		metadata[contentTypeKey] = *out.ContentType
	}
	return metadata, nil
}

func (s *S3Filesystem) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

func copySource(bucket, key string) string {
	return bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}
