package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.ClassifierProvider != "local" {
		t.Fatalf("expected default provider local, got %s", cfg.ClassifierProvider)
	}
	if cfg.ForecastPeriods != 6 {
		t.Fatalf("expected default forecast_periods 6, got %d", cfg.ForecastPeriods)
	}
	if cfg.ModelVersion != "v2.0" {
		t.Fatalf("expected default model_version v2.0, got %s", cfg.ModelVersion)
	}
	if cfg.ClassifySchedule != "*/5 * * * *" {
		t.Fatalf("unexpected default classify_schedule %q", cfg.ClassifySchedule)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("expected UTC location, got %v", cfg.Location)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "db_path: /data/fit.db\ntop_words: 15\nhttp_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TOP_WORDS", "20")

	cfg := Load()
	if cfg.DBPath != "/data/fit.db" {
		t.Fatalf("expected db_path from YAML, got %s", cfg.DBPath)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected http_addr from YAML, got %s", cfg.HTTPAddr)
	}
	if cfg.TopWords != 20 {
		t.Fatalf("expected env to override top_words to 20, got %d", cfg.TopWords)
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	t.Setenv("FITMETRICS_TEST_STR", "value")
	s := "original"
	envOverride(&s, "FITMETRICS_TEST_STR")
	if s != "value" {
		t.Fatalf("expected override, got %s", s)
	}
	envOverride(&s, "FITMETRICS_TEST_UNSET")
	if s != "value" {
		t.Fatalf("unset env must not clobber, got %s", s)
	}

	t.Setenv("FITMETRICS_TEST_INT", "42")
	n := 7
	envOverrideInt(&n, "FITMETRICS_TEST_INT")
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}
