package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"merch-studio/compositor"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"ENV", "PORT", "BASE_URL", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"DB_SSLMODE", "STORAGE_TYPE", "EDITOR_WIDTH", "EDITOR_HEIGHT", "EXPORT_WIDTH", "EXPORT_HEIGHT",
		"DESIGN_BASE_SIZE", "LOG_LEVEL", "S3_BUCKET", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("port/base = %q %q", cfg.Port, cfg.BaseURL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("database url = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage = %q", cfg.Storage.Type)
	}
	if cfg.EditorSize != (compositor.Size{W: 600, H: 600}) || cfg.ExportSize != (compositor.Size{W: 1200, H: 1200}) {
		t.Errorf("sizes = %v %v", cfg.EditorSize, cfg.ExportSize)
	}
	if cfg.DesignBaseSize != 150 || cfg.LogLevel != logrus.InfoLevel {
		t.Errorf("base size %v, level %v", cfg.DesignBaseSize, cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "studio")
	t.Setenv("DB_NAME", "merch")
	t.Setenv("EXPORT_WIDTH", "2000")
	t.Setenv("EXPORT_HEIGHT", "1500")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://studio.example.com, ,https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if !strings.Contains(cfg.DatabaseURL, "host=db port=5432 user=studio") || !strings.Contains(cfg.DatabaseURL, "sslmode=disable") {
		t.Errorf("dsn = %q", cfg.DatabaseURL)
	}
	if cfg.ExportSize != (compositor.Size{W: 2000, H: 1500}) {
		t.Errorf("export size = %v", cfg.ExportSize)
	}
	if cfg.LogLevel != logrus.DebugLevel {
		t.Errorf("level = %v", cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"EDITOR_WIDTH", "wide"},
		{"EXPORT_HEIGHT", "-1"},
		{"DESIGN_BASE_SIZE", "0"},
		{"LOG_LEVEL", "loud"},
		{"DB_HOST", "only-host"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STORAGE_TYPE=sqlite\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORAGE_TYPE", "memory")

	LoadEnvFile(path)
	if got := os.Getenv("STORAGE_TYPE"); got != "sqlite" {
		t.Fatalf("STORAGE_TYPE = %q, want the .env value", got)
	}
}
