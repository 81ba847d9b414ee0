// manager_test.go - Tests for the log file store
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fix-logviewer/backend/internal/models"
)

const sampleFIX = "8=FIX.4.4|35=0|49=A|56=B|10=000|\n"

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates upload directory", func(t *testing.T) {
		uploadDir := filepath.Join(t.TempDir(), "nested", "uploads")
		if _, err := NewLocalStore(uploadDir); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if _, err := os.Stat(uploadDir); err != nil {
			t.Errorf("Expected upload directory to be created: %v", err)
		}
	})
}

func TestLocalStore_Save(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("session.log", strings.NewReader(sampleFIX))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.ID == "" || info.Name != "session.log" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if info.Size != int64(len(sampleFIX)) {
		t.Errorf("Expected size %d, got %d", len(sampleFIX), info.Size)
	}
	if info.Status != models.FileStatusUploaded {
		t.Errorf("Expected status %q, got %q", models.FileStatusUploaded, info.Status)
	}

	path, err := store.GetFilePath(info.ID)
	if err != nil {
		t.Fatalf("GetFilePath failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Reading stored file: %v", err)
	}
	if string(data) != sampleFIX {
		t.Errorf("Stored content mismatch: %q", data)
	}
}

func TestLocalStore_SaveBytes(t *testing.T) {
	store := createTestStore(t)

	info, err := store.SaveBytes("bytes.log", []byte(sampleFIX))
	if err != nil {
		t.Fatalf("SaveBytes failed: %v", err)
	}
	got, err := store.Get(info.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Size != int64(len(sampleFIX)) {
		t.Errorf("Expected size %d, got %d", len(sampleFIX), got.Size)
	}
}

func TestLocalStore_NotFound(t *testing.T) {
	store := createTestStore(t)

	if _, err := store.Get("missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Get: expected ErrFileNotFound, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Delete: expected ErrFileNotFound, got %v", err)
	}
	if _, err := store.Rename("missing", "x"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Rename: expected ErrFileNotFound, got %v", err)
	}
	if _, err := store.GetFilePath("missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("GetFilePath: expected ErrFileNotFound, got %v", err)
	}
	if err := store.SetStatus("missing", models.FileStatusIndexed, ""); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("SetStatus: expected ErrFileNotFound, got %v", err)
	}
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.SaveBytes("f"+strconv.Itoa(i)+".log", []byte(sampleFIX)); err != nil {
			t.Fatalf("SaveBytes failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("most recent first", func(t *testing.T) {
		files, err := store.List(10)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(files) != 3 || files[0].Name != "f2.log" || files[2].Name != "f0.log" {
			t.Errorf("Unexpected order: %v, %v, %v", files[0].Name, files[1].Name, files[2].Name)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		files, _ := store.List(2)
		if len(files) != 2 {
			t.Errorf("Expected 2 files, got %d", len(files))
		}
	})

	t.Run("zero limit lists all", func(t *testing.T) {
		files, _ := store.List(0)
		if len(files) != 3 {
			t.Errorf("Expected 3 files, got %d", len(files))
		}
	})
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.SaveBytes("gone.log", []byte(sampleFIX))
	path, _ := store.GetFilePath(info.ID)

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed from disk")
	}
	if _, err := store.Get(info.ID); err == nil {
		t.Error("Expected metadata to be removed")
	}
}

func TestLocalStore_RenameAndStatus(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.SaveBytes("old.log", []byte(sampleFIX))

	renamed, err := store.Rename(info.ID, "new.log")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if renamed.Name != "new.log" {
		t.Errorf("Expected new.log, got %s", renamed.Name)
	}

	if err := store.SetStatus(info.ID, models.FileStatusIndexing, "sess-1"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := store.Get(info.ID)
	if got.Status != models.FileStatusIndexing || got.SessionID != "sess-1" {
		t.Errorf("Unexpected info after SetStatus: %+v", got)
	}

	// Returned metadata is a copy.
	got.Name = "mutated"
	again, _ := store.Get(info.ID)
	if again.Name != "new.log" {
		t.Errorf("Expected stored name to be unaffected, got %s", again.Name)
	}
}

func TestLocalStore_ChunkedUpload(t *testing.T) {
	store := createTestStore(t)
	parts := []string{"8=FIX.4.4|35=0|", "49=A|56=B|", "10=000|\n"}

	for i, p := range parts {
		if err := store.SaveChunk("upload-1", i, strings.NewReader(p)); err != nil {
			t.Fatalf("SaveChunk %d failed: %v", i, err)
		}
	}

	info, err := store.CompleteChunkedUpload("upload-1", "chunked.log", len(parts))
	if err != nil {
		t.Fatalf("CompleteChunkedUpload failed: %v", err)
	}
	path, _ := store.GetFilePath(info.ID)
	data, _ := os.ReadFile(path)
	if string(data) != strings.Join(parts, "") {
		t.Errorf("Assembled content mismatch: %q", data)
	}
	if _, err := os.Stat(filepath.Join(store.uploadDir, "chunks", "upload-1")); !os.IsNotExist(err) {
		t.Error("Expected chunk directory to be removed")
	}

	t.Run("missing chunk", func(t *testing.T) {
		if err := store.SaveChunk("upload-2", 0, strings.NewReader("a")); err != nil {
			t.Fatalf("SaveChunk failed: %v", err)
		}
		if _, err := store.CompleteChunkedUpload("upload-2", "x.log", 2); err == nil {
			t.Error("Expected error for missing chunk")
		}
		files, _ := store.List(0)
		if len(files) != 1 {
			t.Errorf("Expected failed assembly to leave no file, got %d files", len(files))
		}
	})

	t.Run("negative index", func(t *testing.T) {
		if err := store.SaveChunk("upload-3", -1, strings.NewReader("a")); err == nil {
			t.Error("Expected error for negative chunk index")
		}
	})
}

func TestLocalStore_ConcurrentAccess(t *testing.T) {
	store := createTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := store.Save("file.log", strings.NewReader("content "+strconv.Itoa(n))); err != nil {
				t.Errorf("Failed to save file: %v", err)
			}
		}(i)
	}
	wg.Wait()

	files, _ := store.List(20)
	if len(files) != 10 {
		t.Errorf("Expected 10 files, got %d", len(files))
	}
}

// failingReader returns an error on the first read.
type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestLocalStore_SaveReadError(t *testing.T) {
	store := createTestStore(t)

	if _, err := store.Save("broken.log", failingReader{}); err == nil {
		t.Fatal("Expected error when reader fails")
	}
	entries, _ := os.ReadDir(store.uploadDir)
	if len(entries) != 0 {
		t.Errorf("Expected partial file to be removed, found %d entries", len(entries))
	}
}
