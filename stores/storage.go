// Package stores persists processed product images. The backend is chosen by configuration.
package stores

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"merch-studio/stores/aws"
	"merch-studio/stores/filesystem"
	"merch-studio/stores/memory"
	"merch-studio/stores/sqlite"
)

// ImageStore saves and serves image blobs by key. Get reports a missing key with an error
// wrapping fs.ErrNotExist.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
}

// Options selects and configures a backend
type Options struct {
	// Type is one of memory, filesystem, sqlite or s3; anything else means memory
	Type       string
	LocalPath  string
	SQLitePath string
	S3Bucket   string
}

// GetStore opens the configured backend
func GetStore(ctx context.Context, opts Options) (ImageStore, error) {
	fields := logrus.Fields{"storageType": opts.Type}
	var store ImageStore
	var err error

	switch opts.Type {
	case "filesystem":
		path := opts.LocalPath
		if path == "" {
			path = "./data/images"
		}
		fields["basePath"] = path
		store, err = filesystem.NewStore(path)
	case "sqlite":
		dsn := opts.SQLitePath
		if dsn == "" {
			dsn = "merch-studio.db"
		}
		fields["dataSourceName"] = dsn
		store, err = sqlite.NewStore(ctx, dsn)
	case "s3":
		if opts.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET must be set for s3 storage")
		}
		fields["bucketName"] = opts.S3Bucket
		store, err = aws.NewStore(ctx, opts.S3Bucket)
	default:
		fields["storageType"] = "in-memory"
		store = memory.NewStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s image store: %w", opts.Type, err)
	}
	logrus.WithFields(fields).Info("🗄️ Use storage")
	return store, nil
}

var (
	_ ImageStore = (*memory.Store)(nil)
	_ ImageStore = (*filesystem.Store)(nil)
	_ ImageStore = (*sqlite.Store)(nil)
	_ ImageStore = (*aws.Store)(nil)
)
