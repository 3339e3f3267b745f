package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTPAddr != ":8000" || cfg.Server.MaxUploadMB != 200 {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != len(DefaultCORSOrigins) {
		t.Fatalf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Store.TTL != 24*time.Hour {
		t.Fatalf("store defaults = %+v", cfg.Store)
	}

	want := pipeline.DefaultConfig()
	got := cfg.Pipeline
	if got.Timeout != want.Timeout || got.Workers != want.Workers || got.Limits != want.Limits || got.MaxInflatedMB != want.MaxInflatedMB {
		t.Fatalf("pipeline defaults = %+v", got)
	}
	if got.Threshold != wavelet.DefaultThresholdPolicy() || got.Spectrogram != want.Spectrogram {
		t.Fatalf("policy defaults = %+v %+v", got.Threshold, got.Spectrogram)
	}
}

func TestLoadShippedFile(t *testing.T) {
	cfg, err := Load("config.yaml", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Limits.MaxFreqBins != 200 || cfg.Pipeline.Spectrogram.WindowSize != 256 {
		t.Fatalf("shipped pipeline config = %+v", cfg.Pipeline)
	}
	if cfg.Store.SweepSchedule != "@every 10m" {
		t.Fatalf("sweep schedule = %q", cfg.Store.SweepSchedule)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  http_addr: ":9000"
store:
  ttl: 2h
pipeline:
  workers: 2
  threshold:
    mode: hard
    estimator: finest
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SONIDO_PIPELINE_WORKERS", "8")
	t.Setenv("SONIDO_LOG_LEVEL", "debug")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9000" || cfg.Store.TTL != 2*time.Hour {
		t.Fatalf("file values not applied: %+v %+v", cfg.Server, cfg.Store)
	}
	if cfg.Pipeline.Workers != 8 || cfg.Log.Level != "debug" {
		t.Fatalf("env overrides not applied: workers=%d level=%s", cfg.Pipeline.Workers, cfg.Log.Level)
	}
	if cfg.Pipeline.Threshold.Mode != wavelet.HardThreshold || cfg.Pipeline.Threshold.Estimator != wavelet.FinestEstimator {
		t.Fatalf("threshold = %+v", cfg.Pipeline.Threshold)
	}

	envOnly, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load(envOnly): %v", err)
	}
	if envOnly.Server.HTTPAddr != ":8000" || envOnly.Pipeline.Workers != 8 {
		t.Fatalf("envOnly read the file: %+v", envOnly.Server)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "SONIDO_STORE_BACKEND", "etcd"},
		{"postgres without dsn", "SONIDO_STORE_BACKEND", BackendPostgres},
		{"bad threshold mode", "SONIDO_PIPELINE_THRESHOLD_MODE", "medium"},
		{"zero workers", "SONIDO_PIPELINE_WORKERS", "0"},
		{"zero inflated limit", "SONIDO_PIPELINE_MAX_INFLATED_MB", "0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv(c.key, c.value)
			if _, err := Load("", true); err == nil {
				t.Fatalf("expected error for %s=%s", c.key, c.value)
			}
		})
	}
}
