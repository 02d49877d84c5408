// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"merch-studio/compositor"
	"merch-studio/stores"
)

// Config holds every setting the server needs
type Config struct {
	Env  string
	Port string
	// AllowedOrigins lists CORS origins; empty means local development origins
	AllowedOrigins []string
	// BaseURL is the public address the server is reachable at, used for links in product sheets
	BaseURL string

	// DatabaseURL is empty when no Postgres is configured; the in-memory catalog is used then
	DatabaseURL string

	GoogleCredentialsPath string
	// DriveFolderID is the default folder imported by the artwork sync
	DriveFolderID string

	Storage stores.Options

	ImageCacheDir string
	ChromePath    string

	EditorSize     compositor.Size
	ExportSize     compositor.Size
	DesignBaseSize float64

	LogLevel logrus.Level
}

// LoadEnvFile overloads the process environment from .env outside production. A missing file is
// not an error.
func LoadEnvFile(path string) {
	if os.Getenv("ENV") == "production" {
		return
	}
	if err := godotenv.Overload(path); err != nil {
		logrus.WithError(err).Warnf("⚠️ .env file not found at %s, using system environment variables", path)
		return
	}
	logrus.Infof("Successfully loaded environment variables from %s (overriding system variables)", path)
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:                   getenv("ENV", "development"),
		Port:                  strings.TrimPrefix(getenv("PORT", "8080"), ":"),
		GoogleCredentialsPath: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		DriveFolderID:         os.Getenv("DRIVE_FOLDER_ID"),
		Storage: stores.Options{
			Type:       getenv("STORAGE_TYPE", "memory"),
			LocalPath:  getenv("LOCAL_STORAGE_PATH", "./data/images"),
			SQLitePath: getenv("SQLITE_PATH", "merch-studio.db"),
			S3Bucket:   os.Getenv("S3_BUCKET"),
		},
		ImageCacheDir: getenv("IMAGE_CACHE_DIR", "cache/images"),
		ChromePath:    os.Getenv("CHROME_PATH"),
	}
	cfg.BaseURL = getenv("BASE_URL", "http://localhost:"+cfg.Port)
	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	dbURL, err := databaseURL()
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dbURL

	if cfg.EditorSize, err = sizeFromEnv("EDITOR", compositor.Size{W: 600, H: 600}); err != nil {
		return nil, err
	}
	if cfg.ExportSize, err = sizeFromEnv("EXPORT", compositor.Size{W: 1200, H: 1200}); err != nil {
		return nil, err
	}
	if cfg.DesignBaseSize, err = floatFromEnv("DESIGN_BASE_SIZE", 150); err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level
	return cfg, nil
}

// databaseURL returns DATABASE_URL, or a DSN built from DB_* variables, or "" when neither is set
func databaseURL() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if host == "" && user == "" && name == "" {
		return "", nil
	}
	if host == "" || user == "" || name == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, getenv("DB_PORT", "5432"), user, os.Getenv("DB_PASSWORD"), name, getenv("DB_SSLMODE", "disable")), nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func sizeFromEnv(prefix string, fallback compositor.Size) (compositor.Size, error) {
	w, err := intFromEnv(prefix+"_WIDTH", fallback.W)
	if err != nil {
		return fallback, err
	}
	h, err := intFromEnv(prefix+"_HEIGHT", fallback.H)
	if err != nil {
		return fallback, err
	}
	return compositor.Size{W: w, H: h}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, raw)
	}
	return v, nil
}
