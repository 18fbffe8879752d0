package printing

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFilename = "Informe_Pedagogico_IA_Alumno_Gomez_Ana_Curso_5A.pdf"

func newTestStorage(t *testing.T) (*FileSystemStorage, string) {
	t.Helper()
	tempDir := t.TempDir()
	storage, err := NewFileSystemStorage(&FileSystemStorageConfig{
		BasePath: tempDir,
		BaseURL:  "/reports",
	})
	require.NoError(t, err)
	return storage, tempDir
}

func TestNewFileSystemStorage(t *testing.T) {
	t.Run("with base path only", func(t *testing.T) {
		tempDir := t.TempDir()
		storage, err := NewFileSystemStorage(&FileSystemStorageConfig{BasePath: tempDir})
		require.NoError(t, err)
		assert.Equal(t, tempDir, storage.config.BasePath)
		assert.Equal(t, "/reports", storage.config.BaseURL)
	})

	t.Run("creates missing base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "reports")
		_, err := NewFileSystemStorage(&FileSystemStorageConfig{BasePath: base})
		require.NoError(t, err)
		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestStorageKey(t *testing.T) {
	at := time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024/03/"+testFilename, StorageKey(testFilename, at))
}

func TestFileSystemStorage_Store(t *testing.T) {
	storage, tempDir := newTestStorage(t)
	at := time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)

	t.Run("successful store", func(t *testing.T) {
		pdfData := []byte("%PDF-1.4 test pdf content")

		result, err := storage.Store(context.Background(), &StoreRequest{
			Filename: testFilename,
			PDFData:  pdfData,
			StoredAt: at,
		})
		require.NoError(t, err)
		assert.Equal(t, "2024/03/"+testFilename, result.Key)
		assert.Equal(t, "/reports/2024/03/"+testFilename, result.URL)
		assert.Equal(t, int64(len(pdfData)), result.Size)

		content, err := os.ReadFile(filepath.Join(tempDir, "2024", "03", testFilename))
		require.NoError(t, err)
		assert.Equal(t, pdfData, content)
	})

	t.Run("same filename replaces previous document", func(t *testing.T) {
		_, err := storage.Store(context.Background(), &StoreRequest{Filename: testFilename, PDFData: []byte("%PDF-old"), StoredAt: at})
		require.NoError(t, err)
		_, err = storage.Store(context.Background(), &StoreRequest{Filename: testFilename, PDFData: []byte("%PDF-new"), StoredAt: at})
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(tempDir, "2024", "03", testFilename))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-new", string(content))

		entries, err := os.ReadDir(filepath.Join(tempDir, "2024", "03"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temporary files are left behind")
	})

	tests := []struct {
		name    string
		req     *StoreRequest
		wantErr string
	}{
		{"nil request", nil, "nil"},
		{"empty filename", &StoreRequest{PDFData: []byte("x")}, "filename is required"},
		{"path separator", &StoreRequest{Filename: "../escape.pdf", PDFData: []byte("x")}, "path separators"},
		{"backslash", &StoreRequest{Filename: `a\b.pdf`, PDFData: []byte("x")}, "path separators"},
		{"wrong extension", &StoreRequest{Filename: "report.txt", PDFData: []byte("x")}, ".pdf"},
		{"empty data", &StoreRequest{Filename: testFilename}, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := storage.Store(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result, err := storage.Store(ctx, &StoreRequest{Filename: testFilename, PDFData: []byte("x")})
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestFileSystemStorage_Get(t *testing.T) {
	storage, _ := newTestStorage(t)
	pdfData := []byte("%PDF-1.4 test pdf content")

	result, err := storage.Store(context.Background(), &StoreRequest{Filename: testFilename, PDFData: pdfData})
	require.NoError(t, err)

	t.Run("successful get", func(t *testing.T) {
		reader, err := storage.Get(context.Background(), result.Key)
		require.NoError(t, err)
		defer reader.Close()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, pdfData, content)
	})

	t.Run("file not found", func(t *testing.T) {
		reader, err := storage.Get(context.Background(), "2024/01/missing.pdf")
		assert.Error(t, err)
		assert.Nil(t, reader)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("directory traversal attempt", func(t *testing.T) {
		reader, err := storage.Get(context.Background(), "../../../etc/passwd")
		assert.Error(t, err)
		assert.Nil(t, reader)
	})

	t.Run("absolute path attempt", func(t *testing.T) {
		reader, err := storage.Get(context.Background(), "/etc/passwd")
		assert.Error(t, err)
		assert.Nil(t, reader)
	})
}

func TestFileSystemStorage_Delete(t *testing.T) {
	storage, tempDir := newTestStorage(t)

	result, err := storage.Store(context.Background(), &StoreRequest{Filename: testFilename, PDFData: []byte("%PDF-1.4")})
	require.NoError(t, err)

	t.Run("successful delete", func(t *testing.T) {
		require.NoError(t, storage.Delete(context.Background(), result.Key))

		_, err := os.Stat(filepath.Join(tempDir, filepath.FromSlash(result.Key)))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("delete nonexistent file", func(t *testing.T) {
		assert.NoError(t, storage.Delete(context.Background(), "2024/01/missing.pdf"))
	})

	t.Run("directory traversal attempt", func(t *testing.T) {
		assert.Error(t, storage.Delete(context.Background(), "../../../etc/passwd"))
	})
}

func TestFileSystemStorage_CleanupOlderThan(t *testing.T) {
	storage, tempDir := newTestStorage(t)

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		_, err := storage.Store(context.Background(), &StoreRequest{Filename: name, PDFData: []byte("%PDF-1.4")})
		require.NoError(t, err)
	}

	t.Run("recent files are kept", func(t *testing.T) {
		deleted, err := storage.CleanupOlderThan(context.Background(), 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, deleted)
	})

	t.Run("old files are removed", func(t *testing.T) {
		old := time.Now().Add(-48 * time.Hour)
		key := StorageKey("a.pdf", time.Now())
		require.NoError(t, os.Chtimes(filepath.Join(tempDir, filepath.FromSlash(key)), old, old))

		deleted, err := storage.CleanupOlderThan(context.Background(), 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})
}

func TestFileSystemStorage_GetURL(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		baseURL  string
		key      string
		expected string
	}{
		{"simple key", "/reports", "2024/01/a.pdf", "/reports/2024/01/a.pdf"},
		{"https base URL", "https://example.com/reports", "2024/01/a.pdf", "https://example.com/reports/2024/01/a.pdf"},
		{"trailing slash", "https://example.com/reports/", "2024/01/a.pdf", "https://example.com/reports/2024/01/a.pdf"},
		{"key with dots", "/reports", "2024/01/./a.pdf", "/reports/2024/01/a.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewFileSystemStorage(&FileSystemStorageConfig{BasePath: tempDir, BaseURL: tt.baseURL})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, storage.GetURL(tt.key))
		})
	}
}

func TestContainsDotDot(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"normal path", "2024/01/file.pdf", false},
		{"path with dot dot", "2024/../secret/file.pdf", true},
		{"path starting with dot dot", "../etc/passwd", true},
		{"backslash dot dot", `..\secret`, true},
		{"path with single dot", "2024/./01/file.pdf", false},
		{"dots inside a name", "2024/01/a..b.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, containsDotDot(tt.path))
		})
	}
}
