package printing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miescuela/backend/internal/infrastructure/logger"
)

// PDFStorage saves finished report documents and serves them back.
// Keys are relative paths of the form "<year>/<month>/<filename>".
type PDFStorage interface {
	// Store saves a document under its filename, replacing any previous
	// document with the same key
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
	// Get retrieves a document by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, key string) error
	// CleanupOlderThan removes documents older than age
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
	// GetURL returns the accessible URL for a stored document
	GetURL(key string) string
}

// StoreRequest contains the parameters for storing a document
type StoreRequest struct {
	// Filename is the save name derived from the report metadata
	Filename string
	// PDFData is the serialized document
	PDFData []byte
	// StoredAt selects the year/month folder. Zero means now.
	StoredAt time.Time
}

// StoreResult contains the result of storing a document
type StoreResult struct {
	// Key is the storage path relative to the storage root
	Key string
	// URL is the accessible URL for the document
	URL string
	// Size is the document size in bytes
	Size int64
}

// StorageKey returns the key a document is stored under
func StorageKey(filename string, at time.Time) string {
	return fmt.Sprintf("%d/%02d/%s", at.Year(), at.Month(), filename)
}

// ValidateStoreRequest checks the fields every PDFStorage implementation needs
func ValidateStoreRequest(req *StoreRequest) error {
	if req == nil {
		return NewRenderError(ErrCodeStorageFailed, "store request is nil", nil)
	}
	if req.Filename == "" {
		return NewRenderError(ErrCodeStorageFailed, "filename is required", nil)
	}
	if strings.ContainsAny(req.Filename, `/\`) || req.Filename == "." || req.Filename == ".." {
		return NewRenderError(ErrCodeStorageFailed, "filename must not contain path separators", nil)
	}
	if !strings.EqualFold(filepath.Ext(req.Filename), ".pdf") {
		return NewRenderError(ErrCodeStorageFailed, "filename must have a .pdf extension", nil)
	}
	if len(req.PDFData) == 0 {
		return NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}
	return nil
}

// FileSystemStorageConfig contains configuration for file system storage
type FileSystemStorageConfig struct {
	// BasePath is the root directory for exported reports
	// Default: ./reports
	BasePath string
	// BaseURL is the URL prefix for accessing reports
	// Example: https://miescuela.example.com/reports
	BaseURL string
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemStorage stores reports on the local file system
type FileSystemStorage struct {
	config *FileSystemStorageConfig
	logger *zap.Logger
}

// NewFileSystemStorage creates a new file system based report storage
func NewFileSystemStorage(config *FileSystemStorageConfig) (*FileSystemStorage, error) {
	if config == nil {
		config = &FileSystemStorageConfig{}
	}

	if config.BasePath == "" {
		config.BasePath = "./reports"
	}
	if config.BaseURL == "" {
		config.BaseURL = "/reports"
	}

	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create storage directory: %s", config.BasePath), err)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &FileSystemStorage{
		config: config,
		logger: log,
	}, nil
}

// Store writes a document to {base}/{year}/{month}/{filename}.
// The data is written to a temporary file first and renamed into place, so a
// reader never observes a partially written document.
func (s *FileSystemStorage) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	select {
	case <-ctx.Done():
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	if err := ValidateStoreRequest(req); err != nil {
		return nil, err
	}

	at := req.StoredAt
	if at.IsZero() {
		at = time.Now()
	}
	key := StorageKey(req.Filename, at)
	fullPath := filepath.Join(s.config.BasePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create directory", err)
	}

	tmpPath := fullPath + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmpPath, req.PDFData, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to move PDF file into place", err)
	}

	url := s.GetURL(key)

	logger.WithLogger(ctx, s.logger).Info("report stored",
		zap.String("path", fullPath),
		zap.Int("size", len(req.PDFData)),
		zap.String("url", url))

	return &StoreResult{
		Key:  key,
		URL:  url,
		Size: int64(len(req.PDFData)),
	}, nil
}

// Get retrieves a document by its key
func (s *FileSystemStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewRenderError(ErrCodeStorageFailed, "report not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open PDF file", err)
	}

	return file, nil
}

// Delete removes a document
func (s *FileSystemStorage) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete PDF file", err)
	}

	s.logger.Info("report deleted", zap.String("key", key))
	return nil
}

// CleanupOlderThan removes documents whose modification time is older than age
func (s *FileSystemStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deletedCount := 0

	err := filepath.Walk(s.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() || filepath.Ext(path) != ".pdf" {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deletedCount++
				s.logger.Debug("deleted old report", zap.String("path", path))
			}
		}

		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return deletedCount, NewRenderError(ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	s.logger.Info("cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

// GetURL returns the accessible URL for a stored document
func (s *FileSystemStorage) GetURL(key string) string {
	cleanKey := filepath.ToSlash(filepath.Clean(key))
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.BaseURL, "/"), cleanKey)
}

// resolve maps a key to an absolute file path under BasePath,
// rejecting keys that would escape it
func (s *FileSystemStorage) resolve(key string) (string, error) {
	cleanKey := filepath.Clean(key)
	if filepath.IsAbs(cleanKey) || containsDotDot(key) {
		s.logger.Warn("blocked potentially malicious key",
			zap.String("key", key),
			zap.String("cleanKey", cleanKey))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid key", nil)
	}

	absBase, err := filepath.Abs(s.config.BasePath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve base path", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.config.BasePath, cleanKey))
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve file path", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("key", key),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid key", nil)
	}
	return absPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}
