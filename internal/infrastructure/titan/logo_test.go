package titan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/matchodds/internal/usecase"
)

func TestLogoDownloader_StoresOnce(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	downloader, err := NewLogoDownloader(LogoDownloaderConfig{Dir: dir})
	if err != nil {
		t.Fatalf("new downloader: %v", err)
	}

	for i := 0; i < 2; i++ {
		path, err := downloader.Store(context.Background(), "Brighton/Hove", srv.URL+"/19.png")
		if err != nil {
			t.Fatalf("store logo: %v", err)
		}
		if path != "/logos/Brighton-Hove.png" {
			t.Fatalf("unexpected public path: %s", path)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "Brighton-Hove.png"))
	if err != nil {
		t.Fatalf("read logo: %v", err)
	}
	if string(raw) != "png-bytes" {
		t.Fatalf("unexpected logo content: %q", raw)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one download, got %d", hits.Load())
	}
}

func TestLogoDownloader_RejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	downloader, err := NewLogoDownloader(LogoDownloaderConfig{Dir: dir})
	if err != nil {
		t.Fatalf("new downloader: %v", err)
	}

	if _, err := downloader.Store(context.Background(), "Arsenal", srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := os.Stat(filepath.Join(dir, "Arsenal.png")); !os.IsNotExist(err) {
		t.Fatalf("failed download must not leave a file, stat err=%v", err)
	}
}

func TestLogoDownloader_RequiresInput(t *testing.T) {
	t.Parallel()

	downloader, err := NewLogoDownloader(LogoDownloaderConfig{Dir: t.TempDir(), PublicPrefix: "/static/logos"})
	if err != nil {
		t.Fatalf("new downloader: %v", err)
	}
	if _, err := downloader.Store(context.Background(), "", "http://x/y.png"); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if downloader.publicPrefix != "/static/logos/" {
		t.Fatalf("unexpected prefix: %s", downloader.publicPrefix)
	}
}
