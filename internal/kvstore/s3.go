// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store keeps each entry as one object under a key prefix in an
// S3-compatible bucket. Values are already sealed by the vault, so the
// object store never sees plaintext secrets.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// S3Options configures NewS3Store.
type S3Options struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Prefix          string
	UseSSL          bool
}

// NewS3Store connects to the endpoint and creates the bucket if missing.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("kvstore: s3 endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	s := &S3Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) object(key string) string {
	return path.Join(s.prefix, key)
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete succeeds when the object is already absent.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := s.client.RemoveObject(ctx, s.bucket, s.object(key), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connection.
func (s *S3Store) Close() error { return nil }

func (s *S3Store) mapError(key string, err error) error {
	if isNoSuchKey(err) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
