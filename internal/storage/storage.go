// Package storage uploads files to an S3-compatible object store. Keys are
// namespaced by folder and randomized, so uploads never collide or leak the
// original filename.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/felix-phuctran/base-be-go/internal/config"
	"github.com/felix-phuctran/base-be-go/internal/domain"
)

// MaxUploadSize caps a single upload at 150 MB.
const MaxUploadSize = 150 << 20

// allowedContentTypes maps accepted MIME types to their canonical file
// extension.
var allowedContentTypes = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"application/pdf":    ".pdf",
	"text/plain":         ".txt",
	"text/csv":           ".csv",
	"video/mp4":          ".mp4",
	"audio/mpeg":         ".mp3",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioStore is an Uploader backed by a MinIO/S3 bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// New connects to the configured object store and ensures the bucket exists.
// Returns (nil, nil) when storage is disabled.
func New(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (*MinioStore, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	s := &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		logger:  logger,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("object storage connected",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
	)
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}
	return nil
}

// Upload validates the content type and size, writes the object under a
// randomized key, and returns its URL.
func (s *MinioStore) Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectKey(folder, contentType)
	if err != nil {
		return "", err
	}
	if size <= 0 || size > MaxUploadSize {
		return "", domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("file size %d exceeds the %d byte limit", size, MaxUploadSize), nil)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}

	s.logger.Info("file uploaded", slog.String("key", key), slog.Int64("size", size))
	return s.objectURL(key), nil
}

// PresignedURL issues a time-limited GET URL for a stored object, for
// buckets that are not publicly readable.
func (s *MinioStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) objectURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	scheme := "http"
	if s.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key)
}

// ObjectKey builds a "<folder>/<uuid><ext>" key for an upload, rejecting
// content types outside the allowlist.
func ObjectKey(folder, contentType string) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("unsupported content type %q", contentType), nil)
	}
	folder = strings.Trim(path.Clean(folder), "/")
	if folder == "" || folder == "." {
		folder = "misc"
	}
	return folder + "/" + uuid.New().String() + ext, nil
}

// Disabled is an Uploader that rejects every upload; used when object
// storage is not configured.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error) {
	return "", domain.NewAppError(domain.CodeValidation, "file storage is not configured", nil)
}
