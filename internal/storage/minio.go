// Package storage stores uploaded product photos in a MinIO bucket and
// hands back the public URL persisted on the photo row.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Oluwablin/photography/internal/config"
)

// Storage is what the photo handler depends on; tests substitute a stub.
type Storage interface {
	UploadPhoto(ctx context.Context, fileName string, file io.Reader, size int64) (objectName, url string, err error)
}

// MinioClient implements Storage on top of a MinIO bucket.
type MinioClient struct {
	client *minio.Client
	cfg    config.MinioConfig
}

// NewMinioClient connects to MinIO and makes sure the photo bucket exists.
func NewMinioClient(ctx context.Context, cfg config.MinioConfig) (*MinioClient, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connect: %w", err)
	}
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio bucket create: %w", err)
		}
	}
	return &MinioClient{client: cli, cfg: cfg}, nil
}

// UploadPhoto stores one attachment. Object names follow the historical
// convention PHOTO1_<yyyy-mm-dd>_<unix>.<ext>; two uploads within the same
// second would collide, so the second one simply overwrites (acceptable
// for the single-photographer-per-product flow).
func (m *MinioClient) UploadPhoto(ctx context.Context, fileName string, file io.Reader, size int64) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("PHOTO1_%s_%d%s", now.Format("2006-01-02"), now.Unix(), ext)

	_, err := m.client.PutObject(ctx, m.cfg.Bucket, objectName, file, size,
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"original-filename": fileName,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", "", fmt.Errorf("minio upload: %w", err)
	}

	scheme := "http"
	if m.cfg.UseSSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/%s/%s", scheme, m.cfg.Endpoint, m.cfg.Bucket, objectName)
	return objectName, url, nil
}
