package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("PIPELINE_ASYNC_ENRICHMENT", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != "0.0.0.0:9090" {
		t.Fatalf("unexpected addr %s", cfg.HTTPAddr())
	}
	if !cfg.Pipeline.AsyncEnrichment {
		t.Fatalf("expected async enrichment enabled")
	}
	if len(cfg.CORS.AllowOrigins) != 2 || cfg.CORS.AllowOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORS.AllowOrigins)
	}
	if got := cfg.DatabaseDSN(); got != "postgres:@tcp(127.0.0.1:5432)/studybuddy?sslmode=disable TimeZone=UTC" {
		t.Fatalf("unexpected mysql dsn %q", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 7000

[ocr]
provider = "local"

[database]
driver = "postgres"
host = "db"
name = "docs"
params = ""
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 7000 || cfg.OCR.Provider != "local" {
		t.Fatalf("file values not applied: %+v", cfg.App)
	}
	if got := cfg.DatabaseDSN(); got != "host=db port=5432 user=postgres password= dbname=docs" {
		t.Fatalf("unexpected postgres dsn %q", got)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("OCR_PROVIDER", "tesseract")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestSQLiteDSNIsFilePath(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "data/studybuddy.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseDSN() != "data/studybuddy.db" {
		t.Fatalf("unexpected sqlite dsn %q", cfg.DatabaseDSN())
	}
}
