// Package storage provides object storage backends for exported reports.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/miescuela/backend/internal/infrastructure/config"
	"github.com/miescuela/backend/internal/infrastructure/logger"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

// Ensure S3ReportStorage implements PDFStorage
var _ printing.PDFStorage = (*S3ReportStorage)(nil)

const pdfContentType = "application/pdf"

// S3ReportStorage stores exported reports in an S3 bucket.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3ReportStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	prefix            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3ReportStorageOption is a functional option for configuring S3ReportStorage
type S3ReportStorageOption func(*S3ReportStorage)

// WithLogger sets a custom logger for S3ReportStorage
func WithLogger(log *zap.Logger) S3ReportStorageOption {
	return func(s *S3ReportStorage) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithPresignExpiration sets how long URLs returned by GetURL stay valid
func WithPresignExpiration(d time.Duration) S3ReportStorageOption {
	return func(s *S3ReportStorage) {
		s.presignExpiration = d
	}
}

// NewS3ReportStorage creates a new S3ReportStorage from configuration
func NewS3ReportStorage(cfg *config.StorageConfig, opts ...S3ReportStorageOption) (*S3ReportStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		// S3-compatible services do not all accept trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	storage := &S3ReportStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(storage)
	}

	if storage.presignExpiration <= 0 {
		storage.presignExpiration = 15 * time.Minute
	}

	return storage, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during startup to ensure the bucket is ready.
func (s *S3ReportStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating report bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Report bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Store uploads a document under <prefix>/<year>/<month>/<filename>.
// S3 writes are atomic per object, so readers never see a partial document.
func (s *S3ReportStorage) Store(ctx context.Context, req *printing.StoreRequest) (*printing.StoreResult, error) {
	if err := printing.ValidateStoreRequest(req); err != nil {
		return nil, err
	}

	at := req.StoredAt
	if at.IsZero() {
		at = time.Now()
	}
	key := printing.StorageKey(req.Filename, at)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(req.PDFData),
		ContentLength: aws.Int64(int64(len(req.PDFData))),
		ContentType:   aws.String(pdfContentType),
	})
	if err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to upload report", err)
	}

	url := s.GetURL(key)

	logger.WithLogger(ctx, s.logger).Info("report stored",
		zap.String("bucket", s.bucket),
		zap.String("key", s.objectKey(key)),
		zap.Int("size", len(req.PDFData)))

	return &printing.StoreResult{
		Key:  key,
		URL:  url,
		Size: int64(len(req.PDFData)),
	}, nil
}

// Get downloads a document by key. The caller must close the reader.
func (s *S3ReportStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "report not found", err)
		}
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to download report", err)
	}
	return out.Body, nil
}

// Delete removes a document. S3 reports success for missing keys.
func (s *S3ReportStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to delete report", err)
	}

	s.logger.Info("report deleted", zap.String("key", key))
	return nil
}

// CleanupOlderThan removes reports last modified before now minus age
func (s *S3ReportStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deletedCount := 0

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deletedCount, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to list reports", err)
		}

		for _, obj := range page.Contents {
			objectKey := aws.ToString(obj.Key)
			if !strings.EqualFold(path.Ext(objectKey), ".pdf") {
				continue
			}
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}

			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(objectKey),
			})
			if err != nil {
				s.logger.Warn("failed to delete old report",
					zap.String("key", objectKey),
					zap.Error(err))
				continue
			}
			deletedCount++
			s.logger.Debug("deleted old report", zap.String("key", objectKey))
		}
	}

	s.logger.Info("cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

// GetURL returns a presigned download URL for a stored document, or an
// empty string if signing fails
func (s *S3ReportStorage) GetURL(key string) string {
	req, err := s.presignClient.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		s.logger.Warn("failed to presign report URL",
			zap.String("key", key),
			zap.Error(err))
		return ""
	}
	return req.URL
}

// GetBucket returns the bucket name
func (s *S3ReportStorage) GetBucket() string {
	return s.bucket
}

func (s *S3ReportStorage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func validateKey(key string) error {
	if key == "" {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "storage key is required", nil)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "invalid key", nil)
	}
	return nil
}
