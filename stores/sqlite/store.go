package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store keeps images as blobs in a SQLite database
type Store struct {
	db *sql.DB
}

// NewStore opens dataSourceName and creates the images table
func NewStore(ctx context.Context, dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	stmt := `
	CREATE TABLE IF NOT EXISTS images (
		key TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB,
		created_at DATETIME
	);`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create images table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	log := logrus.WithFields(logrus.Fields{"key": key, "data_length": len(data)})
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (key, content_type, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET content_type = excluded.content_type, data = excluded.data`,
		key, contentType, data, time.Now())
	if err != nil {
		log.WithError(err).Error("Failed to store image")
		return fmt.Errorf("failed to store image %s: %w", key, err)
	}
	log.Debug("Image stored")
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRowContext(ctx, "SELECT data, content_type FROM images WHERE key = ?", key).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("image %s: %w", key, fs.ErrNotExist)
		}
		return nil, "", fmt.Errorf("failed to read image %s: %w", key, err)
	}
	return data, contentType, nil
}
