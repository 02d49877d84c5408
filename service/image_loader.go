package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedURL is returned for image references the loader cannot resolve
var ErrUnsupportedURL = errors.New("unsupported image url")

const maxImageBytes = 32 << 20

// ImageLoader resolves image references used by products and designs and decodes them.
// It understands data: URLs, drive://<id>, Drive uc?id= links, http(s) URLs and local files.
type ImageLoader struct {
	drive  DriveServiceInterface
	client *http.Client
	cache  *ImageCache
}

// NewImageLoader creates a loader. drive may be nil, Drive links are then fetched over http.
func NewImageLoader(drive DriveServiceInterface, cache *ImageCache) *ImageLoader {
	if cache == nil {
		cache = NewImageCache("")
	}
	return &ImageLoader{
		drive:  drive,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
	}
}

// Load fetches and decodes the image at rawURL
func (l *ImageLoader) Load(ctx context.Context, rawURL string) (image.Image, error) {
	data, err := l.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	logrus.WithField("format", format).Debugf("📸 Image decoded: bounds=%v", img.Bounds())
	return img, nil
}

// Fetch returns the raw bytes behind rawURL. Remote bytes are cached.
func (l *ImageLoader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case strings.HasPrefix(rawURL, "data:"):
		return decodeDataURL(rawURL)
	case strings.HasPrefix(rawURL, "file://"):
		return os.ReadFile(strings.TrimPrefix(rawURL, "file://"))
	}

	if data, ok := l.cache.Get(rawURL); ok {
		return data, nil
	}

	var (
		data []byte
		err  error
	)
	if id, ok := driveFileID(rawURL); ok && (l.drive != nil || strings.HasPrefix(rawURL, "drive://")) {
		if l.drive == nil {
			return nil, fmt.Errorf("%w: drive is not configured", ErrUnsupportedURL)
		}
		data, err = l.drive.DownloadImage(ctx, id)
	} else if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		data, err = l.fetchHTTP(ctx, rawURL)
	} else if !strings.Contains(rawURL, "://") {
		return os.ReadFile(rawURL)
	} else {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	if err != nil {
		return nil, err
	}

	l.cache.Put(rawURL, data)
	return data, nil
}

func (l *ImageLoader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// driveFileID extracts the file id from drive://<id> and drive.google.com links
func driveFileID(rawURL string) (string, bool) {
	if id, ok := strings.CutPrefix(rawURL, "drive://"); ok {
		return id, id != ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasSuffix(u.Host, "drive.google.com") {
		return "", false
	}
	id := u.Query().Get("id")
	return id, id != ""
}

func decodeDataURL(rawURL string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data url", ErrUnsupportedURL)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data url: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data url: %w", err)
	}
	return []byte(text), nil
}
