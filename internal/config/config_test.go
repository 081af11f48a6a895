// Copyright 2025 James Ross
package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("ORCH_CONCURRENCY_LIMIT")
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ConcurrencyLimit != 4 {
		t.Fatalf("expected default concurrency_limit 4, got %d", cfg.ConcurrencyLimit)
	}
	if cfg.Pool.Backend != "memory" {
		t.Fatalf("expected default pool backend memory, got %q", cfg.Pool.Backend)
	}
}

func TestValidateFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.ConcurrencyLimit = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for concurrency_limit < 1")
	}

	cfg = defaultConfig()
	cfg.Pool.Backend = "bogus"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown pool backend")
	}

	cfg = defaultConfig()
	cfg.Pool.Backend = "ttl-store"
	cfg.Pool.URL = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing pool.url with ttl-store backend")
	}

	cfg = defaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerSecond = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for rate_limit enabled with per_second <= 0")
	}

	cfg = defaultConfig()
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Tracing.Endpoint = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for tracing enabled with no endpoint")
	}

	cfg = defaultConfig()
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Tracing.Endpoint = "localhost:4318"
	cfg.Observability.Tracing.SamplingRate = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for sampling_rate out of 0..1 range")
	}
}
