// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage publishes finished artifacts such as bundle archives.
// A Sink stores a named blob; FileSink writes under a local directory and
// S3Sink uploads to a bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ContentTypeZip is the media type of bundle archives.
const ContentTypeZip = "application/zip"

// Sink stores a named blob and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

var (
	_ Sink = FileSink{}
	_ Sink = (*S3Sink)(nil)
)

// FileSink writes blobs under Dir.
type FileSink struct {
	Dir string
}

// Put writes data to Dir/name through a temporary file and returns the
// final path.
func (s FileSink) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	dest := name
	if !filepath.IsAbs(name) && s.Dir != "" {
		dest = filepath.Join(s.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".paperfetch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", dest, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return dest, nil
}

// S3Config holds configuration for the S3 sink.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint for S3-compatible providers such
	// as MinIO. Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses "bucket/prefix" or "bucket".
func ParseS3Path(p string) (bucket, prefix string) {
	p = strings.TrimPrefix(p, "s3://")
	bucket, prefix, _ = strings.Cut(p, "/")
	return bucket, prefix
}

// ObjectPutter is the subset of the S3 client the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads blobs to a bucket.
type S3Sink struct {
	client ObjectPutter
	cfg    S3Config
}

// NewS3Sink returns a sink over an existing client.
func NewS3Sink(client ObjectPutter, cfg S3Config) (*S3Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &S3Sink{client: client, cfg: cfg}, nil
}

// NewS3SinkFromEnv builds an S3 client from the AWS default credential
// chain (environment, shared config, IAM role).
func NewS3SinkFromEnv(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3Sink(s3.NewFromConfig(awsCfg, s3Opts...), cfg)
}

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	name = filepath.ToSlash(filepath.Base(name))
	if s.cfg.Prefix == "" {
		return name
	}
	return path.Join(strings.Trim(s.cfg.Prefix, "/"), name)
}

// Put uploads data and returns its s3:// URI.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.Key(name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}
