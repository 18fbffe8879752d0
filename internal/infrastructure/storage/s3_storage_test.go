package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/miescuela/backend/internal/infrastructure/config"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3ReportStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ReportStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3ReportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3ReportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3ReportStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:            "test-bucket",
			AccessKey:         "test-key",
			SecretKey:         "test-secret",
			Region:            "us-east-1",
			Endpoint:          "http://localhost:9000",
			UsePathStyle:      true,
			PresignExpiration: 30 * time.Minute,
		}
		storage, err := NewS3ReportStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", storage.GetBucket())
		assert.Equal(t, 30*time.Minute, storage.presignExpiration)
	})

	t.Run("endpoint without scheme and default expiration", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    true,
			Prefix:    "/reports/",
		}
		storage, err := NewS3ReportStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, storage.presignExpiration)
		assert.Equal(t, "reports", storage.prefix)
		assert.Equal(t, "reports/2026/03/a.pdf", storage.objectKey("2026/03/a.pdf"))
	})
}

func TestS3ReportStorageOptions(t *testing.T) {
	baseConfig := &config.StorageConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}

	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		storage, err := NewS3ReportStorage(baseConfig, WithLogger(logger))
		require.NoError(t, err)
		assert.Same(t, logger, storage.logger)
	})

	t.Run("WithPresignExpiration sets custom duration", func(t *testing.T) {
		storage, err := NewS3ReportStorage(baseConfig, WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, storage.presignExpiration)
	})
}

func TestS3ReportStorage_GetURL(t *testing.T) {
	cfg := &config.StorageConfig{
		Bucket:       "test-bucket",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
	storage, err := NewS3ReportStorage(cfg)
	require.NoError(t, err)

	url := storage.GetURL("2026/03/Informe.pdf")
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/test-bucket/2026/03/Informe.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestS3ReportStorage_KeyValidation(t *testing.T) {
	storage := newFakeS3Storage(t, newFakeS3())
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "2026/../../secret.pdf"} {
		_, err := storage.Get(ctx, key)
		require.Error(t, err, key)
		assert.True(t, printing.HasCode(err, printing.ErrCodeStorageFailed))

		err = storage.Delete(ctx, key)
		require.Error(t, err, key)
	}
}

func TestS3ReportStorage_StoreRejectsInvalidRequest(t *testing.T) {
	fake := newFakeS3()
	storage := newFakeS3Storage(t, fake)

	_, err := storage.Store(context.Background(), &printing.StoreRequest{
		Filename: "nested/report.pdf",
		PDFData:  []byte("%PDF-1.3"),
	})
	require.Error(t, err)
	assert.True(t, printing.HasCode(err, printing.ErrCodeStorageFailed))
	assert.Empty(t, fake.keys())
}

// ============================================================================
// Round trips against an in-memory S3 endpoint
// ============================================================================

func TestS3ReportStorage_StoreGetDelete(t *testing.T) {
	fake := newFakeS3()
	storage := newFakeS3Storage(t, fake)
	ctx := context.Background()
	data := []byte("%PDF-1.3\n%%EOF\n")

	result, err := storage.Store(ctx, &printing.StoreRequest{
		Filename: "Informe_Pedagogico_IA_Alumno_Perez_Ana.pdf",
		PDFData:  data,
		StoredAt: time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2026/03/Informe_Pedagogico_IA_Alumno_Perez_Ana.pdf", result.Key)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Contains(t, result.URL, "/reports/exports/2026/03/Informe_Pedagogico_IA_Alumno_Perez_Ana.pdf")
	assert.Equal(t, []string{"exports/2026/03/Informe_Pedagogico_IA_Alumno_Perez_Ana.pdf"}, fake.keys())
	assert.Equal(t, "application/pdf", fake.contentType("exports/2026/03/Informe_Pedagogico_IA_Alumno_Perez_Ana.pdf"))

	body, err := storage.Get(ctx, result.Key)
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, storage.Delete(ctx, result.Key))
	assert.Empty(t, fake.keys())

	_, err = storage.Get(ctx, result.Key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report not found")

	// deleting twice is not an error
	require.NoError(t, storage.Delete(ctx, result.Key))
}

func TestS3ReportStorage_StoreOverwritesSameName(t *testing.T) {
	fake := newFakeS3()
	storage := newFakeS3Storage(t, fake)
	ctx := context.Background()
	at := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	for _, payload := range []string{"%PDF-first", "%PDF-second"} {
		_, err := storage.Store(ctx, &printing.StoreRequest{
			Filename: "Reporte.pdf",
			PDFData:  []byte(payload),
			StoredAt: at,
		})
		require.NoError(t, err)
	}

	assert.Len(t, fake.keys(), 1)
	assert.Equal(t, "%PDF-second", string(fake.body("exports/2026/04/Reporte.pdf")))
}

func TestS3ReportStorage_CleanupOlderThan(t *testing.T) {
	fake := newFakeS3()
	now := time.Now()
	fake.put("exports/2025/01/old.pdf", []byte("%PDF-old"), now.Add(-90*24*time.Hour))
	fake.put("exports/2025/02/old-too.pdf", []byte("%PDF-old"), now.Add(-60*24*time.Hour))
	fake.put("exports/2026/03/fresh.pdf", []byte("%PDF-new"), now.Add(-time.Hour))
	fake.put("exports/2025/01/notes.txt", []byte("keep"), now.Add(-90*24*time.Hour))
	fake.put("other/2025/01/foreign.pdf", []byte("%PDF-foreign"), now.Add(-90*24*time.Hour))

	storage := newFakeS3Storage(t, fake)

	deleted, err := storage.CleanupOlderThan(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{
		"exports/2025/01/notes.txt",
		"exports/2026/03/fresh.pdf",
		"other/2025/01/foreign.pdf",
	}, fake.keys())
}

func TestS3ReportStorage_EnsureBucket(t *testing.T) {
	fake := newFakeS3()
	fake.bucketExists = false
	storage := newFakeS3Storage(t, fake)

	require.NoError(t, storage.EnsureBucket(context.Background()))
	assert.True(t, fake.bucketExists)

	// Should not error if bucket already exists
	require.NoError(t, storage.EnsureBucket(context.Background()))
}

// ============================================================================
// Fake S3 endpoint
// ============================================================================

const fakeBucket = "reports"

type fakeObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// fakeS3 serves the path-style subset of the S3 API used by S3ReportStorage
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string]fakeObject
	bucketExists bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), bucketExists: true}
}

func (f *fakeS3) put(key string, data []byte, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, contentType: "application/pdf", lastModified: at}
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeS3) body(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key].data
}

func (f *fakeS3) contentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key].contentType
}

type listBucketResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Xmlns       string        `xml:"xmlns,attr"`
	Name        string        `xml:"Name"`
	Prefix      string        `xml:"Prefix"`
	KeyCount    int           `xml:"KeyCount"`
	MaxKeys     int           `xml:"MaxKeys"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != fakeBucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	if key == "" {
		f.serveBucket(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.objects[key] = fakeObject{data: data, contentType: r.Header.Get("Content-Type"), lastModified: time.Now()}
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", fmt.Sprint(len(obj.data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obj.data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) serveBucket(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodHead:
		if !f.bucketExists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.bucketExists = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		result := listBucketResult{
			Xmlns:   "http://s3.amazonaws.com/doc/2006-03-01/",
			Name:    fakeBucket,
			Prefix:  prefix,
			MaxKeys: 1000,
		}
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj := f.objects[k]
			result.Contents = append(result.Contents, listContent{
				Key:          k,
				LastModified: obj.lastModified.UTC().Format("2006-01-02T15:04:05.000Z"),
				Size:         len(obj.data),
			})
		}
		result.KeyCount = len(result.Contents)

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(xml.Header))
		_ = xml.NewEncoder(w).Encode(result)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func newFakeS3Storage(t *testing.T, fake *fakeS3) *S3ReportStorage {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	storage, err := NewS3ReportStorage(&config.StorageConfig{
		Endpoint:     server.URL,
		Region:       "us-east-1",
		Bucket:       fakeBucket,
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
		Prefix:       "exports",
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return storage
}
