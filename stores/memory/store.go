package memory

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/sirupsen/logrus"
)

type blob struct {
	data        []byte
	contentType string
}

// Store keeps images in process memory
type Store struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{blobs: make(map[string]blob)}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("image key must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	logrus.WithFields(logrus.Fields{"key": key, "size": len(data)}).Debug("Image stored in memory")
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("image %s: %w", key, fs.ErrNotExist)
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}
