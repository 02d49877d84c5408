package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, fill(w, h, color.NRGBA{G: 200, A: 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func assertSize(t *testing.T, img image.Image, w, h int) {
	t.Helper()
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
}

func TestImageLoaderDataURL(t *testing.T) {
	loader := NewImageLoader(nil, nil)
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3, 2))
	img, err := loader.Load(context.Background(), url)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	assertSize(t, img, 3, 2)
}

func TestImageLoaderLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mockup.png")
	if err := os.WriteFile(path, pngBytes(t, 4, 4), 0644); err != nil {
		t.Fatal(err)
	}
	loader := NewImageLoader(nil, nil)
	for _, url := range []string{path, "file://" + path} {
		img, err := loader.Load(context.Background(), url)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", url, err)
		}
		assertSize(t, img, 4, 4)
	}
}

func TestImageLoaderHTTPIsCached(t *testing.T) {
	var hits atomic.Int32
	data := pngBytes(t, 5, 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/art.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	loader := NewImageLoader(nil, NewImageCache(t.TempDir()))
	for i := 0; i < 2; i++ {
		img, err := loader.Load(context.Background(), srv.URL+"/art.png")
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		assertSize(t, img, 5, 5)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}

	if _, err := loader.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected an error for a 404")
	}
}

func TestImageLoaderDrive(t *testing.T) {
	drive := &fakeDrive{files: map[string][]byte{"abc": pngBytes(t, 2, 2)}}
	loader := NewImageLoader(drive, nil)

	for _, url := range []string{"drive://abc", DriveImageURL("abc")} {
		img, err := loader.Load(context.Background(), url)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", url, err)
		}
		assertSize(t, img, 2, 2)
	}
	if drive.downloads != 2 {
		t.Errorf("downloads = %d, want one per distinct url", drive.downloads)
	}
}

func TestImageLoaderRejectsUnsupported(t *testing.T) {
	loader := NewImageLoader(nil, nil)
	for _, url := range []string{"", "ftp://host/a.png", "drive://abc", "data:image/png;base64"} {
		if _, err := loader.Load(context.Background(), url); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("Load(%q) error = %v, want ErrUnsupportedURL", url, err)
		}
	}
}

func TestImageCacheDiskSurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	NewImageCache(dir).Put("https://cdn/a.png", []byte("bytes"))

	data, ok := NewImageCache(dir).Get("https://cdn/a.png")
	if !ok || string(data) != "bytes" {
		t.Fatalf("Get() = %q, %v", data, ok)
	}
	if _, ok := NewImageCache("").Get("https://cdn/a.png"); ok {
		t.Error("memory-only cache should start empty")
	}
}

func TestOptimizeImage(t *testing.T) {
	tests := []struct {
		size  string
		w, h  int
		wantW int
		wantH int
	}{
		{SizeThumb, 1200, 600, 300, 150},
		{SizeMedium, 600, 1600, 300, 800},
		{SizeMedium, 100, 50, 100, 50},
	}
	for _, tt := range tests {
		out, err := OptimizeImage(pngBytes(t, tt.w, tt.h), tt.size)
		if err != nil {
			t.Fatalf("OptimizeImage(%s) failed: %v", tt.size, err)
		}
		img, format, err := image.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatal(err)
		}
		if format != "jpeg" {
			t.Errorf("format = %s, want jpeg", format)
		}
		assertSize(t, img, tt.wantW, tt.wantH)
	}

	if _, err := OptimizeImage([]byte("not an image"), SizeThumb); err == nil {
		t.Error("expected decode error")
	}
}
