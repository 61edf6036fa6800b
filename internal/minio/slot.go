// Package minio provides an object-storage backed slot, keeping each slot value
// as a JSON object in a MinIO (or any S3 compatible) bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rossigee/job-application-tracker/internal/retry"
	"github.com/sirupsen/logrus"
)

// Config holds the connection settings for the object store
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Retry     retry.Config
}

// Slot stores slot values as objects named <prefix>/<key>.json
type Slot struct {
	minioClient *minio.Client
	bucket      string
	prefix      string
	retry       retry.Config
}

// NewSlot validates cfg and creates a client. No request is made until EnsureBucket, Get or Set.
func NewSlot(cfg Config) (*Slot, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf(
			"MINIO_ACCESS_KEY or MINIO_ACCESS_KEY_ID environment variable is required")
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf(
			"MINIO_SECRET_KEY or MINIO_SECRET_ACCESS_KEY environment variable is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("MINIO_BUCKET must not be empty")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': %w (expected format: https://hostname:port)", cfg.Endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT scheme '%s': must be http or https", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': missing hostname", cfg.Endpoint)
	}

	minioClient, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client for %s: %w", u.Host, err)
	}

	return &Slot{
		minioClient: minioClient,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		retry:       cfg.Retry,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *Slot) EnsureBucket(ctx context.Context) error {
	return retry.WithRetry(ctx, s.retry, func() error {
		exists, err := s.minioClient.BucketExists(ctx, s.bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
		}
		if exists {
			return nil
		}

		logrus.WithField("bucket", s.bucket).Info("Creating slot bucket")
		if err := s.minioClient.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		return nil
	})
}

// Get returns the object stored under key, reporting false when it does not exist
func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	objectName := s.objectName(key)

	var (
		value string
		found bool
	)
	err := retry.WithRetry(ctx, s.retry, func() error {
		object, err := s.minioClient.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
		if err != nil {
			return fmt.Errorf("failed to get object: %w", err)
		}
		defer func() {
			_ = object.Close() // Close errors are not critical
		}()

		data, err := io.ReadAll(object)
		if err != nil {
			if isNotFound(err) {
				found = false
				return nil
			}
			if isAccessDenied(err) {
				return retry.Permanent(fmt.Errorf("failed to read object %s: %w", objectName, err))
			}
			return fmt.Errorf("failed to read object %s: %w", objectName, err)
		}

		value, found = string(data), true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return value, found, nil
}

// Set uploads value as the object for key, replacing any previous version
func (s *Slot) Set(ctx context.Context, key, value string) error {
	objectName := s.objectName(key)

	err := retry.WithRetry(ctx, s.retry, func() error {
		_, err := s.minioClient.PutObject(ctx, s.bucket, objectName,
			bytes.NewReader([]byte(value)), int64(len(value)),
			minio.PutObjectOptions{ContentType: "application/json"},
		)
		if err != nil {
			if isAccessDenied(err) {
				return retry.Permanent(fmt.Errorf("failed to put object %s: %w", objectName, err))
			}
			return fmt.Errorf("failed to put object %s: %w", objectName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"object": objectName,
		"bytes":  len(value),
	}).Debug("Wrote slot object")
	return nil
}

// objectName maps a slot key to its object path
func (s *Slot) objectName(key string) string {
	name := key + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func isAccessDenied(err error) bool {
	return minio.ToErrorResponse(err).Code == "AccessDenied"
}
