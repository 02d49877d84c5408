package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Store writes images below a base directory, one file per key
type Store struct {
	basePath string
}

// NewStore creates the base directory if needed
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// filePath maps a slash-separated key below the base directory and rejects keys escaping it
func (s *Store) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	p, err := s.filePath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": p})
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		log.WithError(err).Error("Failed to create image directory")
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write image")
		return fmt.Errorf("failed to write image: %w", err)
	}
	log.Debug("Image written")
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	p, err := s.filePath(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("image %s: %w", key, fs.ErrNotExist)
		}
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
