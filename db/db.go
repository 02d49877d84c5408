package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// DB holds the database connection
var DB *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS clothing_products (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	colors     JSONB NOT NULL DEFAULT '[]',
	images     JSONB NOT NULL DEFAULT '{}',
	is_active  BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS designs (
	id            TEXT PRIMARY KEY,
	designer_id   TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL UNIQUE,
	drive_file_id TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS final_products (
	id               TEXT PRIMARY KEY,
	product_id       TEXT NOT NULL,
	product_name     TEXT NOT NULL,
	garment_color    TEXT NOT NULL,
	gender           TEXT NOT NULL DEFAULT '',
	design_price     BIGINT NOT NULL DEFAULT 0,
	tags             JSONB NOT NULL DEFAULT '[]',
	designs          JSONB NOT NULL DEFAULT '[]',
	variants         JSONB NOT NULL DEFAULT '[]',
	processed_images JSONB NOT NULL DEFAULT '[]',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitDB opens and pings the Postgres connection described by connStr
func InitDB(ctx context.Context, connStr string) error {
	if connStr == "" {
		return fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}

	var err error
	DB, err = sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("✓ Database connection established successfully")
	return nil
}

// Migrate creates the tables the editor backend reads and writes
func Migrate(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	if _, err := DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logrus.Info("✓ Database schema is up to date")
	return nil
}

// CloseDB closes the database connection
func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
