package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
engine:
  timezone: UTC
  match_hour: 9
  deadline_hour: 21
  reaper_delay: 20m
  recency_window: 48h
  flake_cutoff: 3
  reaper_batch_size: 50
media:
  upload_url_ttl: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Engine.Timezone != "UTC" {
		t.Fatalf("unexpected timezone: %s", cfg.Engine.Timezone)
	}
	if cfg.Engine.MatchHour != 9 {
		t.Fatalf("unexpected match hour: %d", cfg.Engine.MatchHour)
	}
	if cfg.Engine.DeadlineHour != 21 {
		t.Fatalf("unexpected deadline hour: %d", cfg.Engine.DeadlineHour)
	}
	if cfg.Engine.ReaperDelay != 20*time.Minute {
		t.Fatalf("unexpected reaper delay: %s", cfg.Engine.ReaperDelay)
	}
	if cfg.Engine.RecencyWindow != 48*time.Hour {
		t.Fatalf("unexpected recency window: %s", cfg.Engine.RecencyWindow)
	}
	if cfg.Engine.FlakeCutoff != 3 {
		t.Fatalf("unexpected flake cutoff: %d", cfg.Engine.FlakeCutoff)
	}
	if cfg.Engine.ReaperBatchSize != 50 {
		t.Fatalf("unexpected reaper batch size: %d", cfg.Engine.ReaperBatchSize)
	}
	if cfg.Media.UploadURLTTL != 10*time.Minute {
		t.Fatalf("unexpected upload url ttl: %s", cfg.Media.UploadURLTTL)
	}

	// Untouched sections keep their defaults.
	if cfg.Engine.HistoryWindow != 7*24*time.Hour {
		t.Fatalf("history window default changed: %s", cfg.Engine.HistoryWindow)
	}
	if cfg.Engine.MatchMinute != 0 {
		t.Fatalf("match minute default changed: %d", cfg.Engine.MatchMinute)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis addr default changed: %s", cfg.Redis.Addr)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	def := Default()
	if cfg.HTTP.Addr != def.HTTP.Addr {
		t.Fatalf("http addr = %s, want default %s", cfg.HTTP.Addr, def.HTTP.Addr)
	}
	if cfg.Engine.Timezone != def.Engine.Timezone {
		t.Fatalf("timezone = %s, want default %s", cfg.Engine.Timezone, def.Engine.Timezone)
	}
}

func TestLoadEnvOverridesWinOverYAML(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
engine:
  match_hour: 9
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	t.Setenv("ENGINE_MATCH_HOUR", "14")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ADMIN_TOKEN", "sekrit")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Engine.MatchHour != 14 {
		t.Fatalf("env override lost: match hour = %d", cfg.Engine.MatchHour)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("env override lost: redis addr = %s", cfg.Redis.Addr)
	}
	if cfg.Admin.Token != "sekrit" {
		t.Fatalf("env override lost: admin token = %s", cfg.Admin.Token)
	}
}

func TestLoadRejectsInvalidEngineValues(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()

	badTZ := filepath.Join(tmpDir, "tz.yaml")
	if err := os.WriteFile(badTZ, []byte("engine:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(badTZ); err == nil {
		t.Fatal("expected error for unknown timezone")
	}

	badHour := filepath.Join(tmpDir, "hour.yaml")
	if err := os.WriteFile(badHour, []byte("engine:\n  deadline_hour: 27\n"), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(badHour); err == nil {
		t.Fatal("expected error for deadline hour out of range")
	}
}

func TestEngineLocationResolves(t *testing.T) {
	cfg := Default()
	loc := cfg.Engine.Location()
	if loc == nil || loc.String() != "America/Los_Angeles" {
		t.Fatalf("unexpected location: %v", loc)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"ADMIN_TOKEN",
		"ENGINE_TIMEZONE",
		"ENGINE_MATCH_HOUR",
		"ENGINE_DEADLINE_HOUR",
		"ENGINE_REAPER_BATCH_SIZE",
		"ENGINE_MATCH_SEED",
	} {
		t.Setenv(key, "")
	}
}
