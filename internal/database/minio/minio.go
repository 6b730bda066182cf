package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/config"
)

// MinioClient wraps the MinIO client used to archive raw uploaded files.
type MinioClient struct {
	client *minio.Client
	config config.MinioConfig
}

// Storage defines bucket names used by the service.
var Storage = struct {
	CommissionImports string
}{
	CommissionImports: "commission-imports",
}

var BucketNames = []string{
	Storage.CommissionImports,
}

// NewMinioClient initializes a MinIO client and verifies the connection.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		slog.Warn("invalid value for MinIO secure flag, defaulting to false", "error", err)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := minioClient.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	return &MinioClient{client: minioClient, config: cfg}, nil
}

// EnsureBuckets creates the service buckets when they do not exist yet.
func (m *MinioClient) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range BucketNames {
		exists, err := m.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.config.MinioLocation}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		slog.Info("bucket created", "bucket", bucket)
	}
	return nil
}

// ArchiveImport stores the raw uploaded CSV under the tenant's prefix and
// returns the object name.
func (m *MinioClient) ArchiveImport(ctx context.Context, userID, filename string, reader io.Reader, size int64) (string, error) {
	objectName := fmt.Sprintf("%s/%s_%s", userID, time.Now().UTC().Format("20060102T150405"), filename)

	_, err := m.client.PutObject(ctx, Storage.CommissionImports, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive import file: %w", err)
	}

	return objectName, nil
}
