package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Port != 8085 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8085)
	}
	if cfg.Cache.MaxEntries != 1000 {
		t.Errorf("Cache.MaxEntries = %d, want %d", cfg.Cache.MaxEntries, 1000)
	}
	if cfg.Cache.CachePrefix != "cadopt:" {
		t.Errorf("Cache.CachePrefix = %q, want %q", cfg.Cache.CachePrefix, "cadopt:")
	}
	if cfg.Queue.Workers != 5 {
		t.Errorf("Queue.Workers = %d, want %d", cfg.Queue.Workers, 5)
	}
	if cfg.Holomesh.Recommendations.SimilarityThreshold != 0.7 {
		t.Errorf("similarity threshold = %v, want 0.7", cfg.Holomesh.Recommendations.SimilarityThreshold)
	}
	if cfg.Holomesh.Recommendations.MaxRecommendations != 5 {
		t.Errorf("max recommendations = %d, want 5", cfg.Holomesh.Recommendations.MaxRecommendations)
	}
	if got := cfg.CacheTTL().Hours(); got != 24 {
		t.Errorf("CacheTTL = %vh, want 24h", got)
	}

	manual := cfg.Holomesh.InteractionModes["manual"]
	if !manual.DefaultConfidentiality {
		t.Error("manual mode should default confidentiality to true")
	}
	if !manual.HolomeshIntegration {
		t.Error("manual mode should flag holomesh_integration")
	}

	yosys, ok := cfg.Tools["yosys"]
	if !ok {
		t.Fatal("expected a default yosys tool entry")
	}
	if len(yosys.SupportedModes) != 4 {
		t.Errorf("yosys supported modes = %v, want 4 entries", yosys.SupportedModes)
	}

	nextpnr, ok := cfg.Tools["nextpnr"]
	if !ok {
		t.Fatal("expected a default nextpnr tool entry")
	}
	for _, m := range nextpnr.SupportedModes {
		if m == "innovative" {
			t.Error("nextpnr should not support innovative mode")
		}
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("Load(\"\") should return defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/cadopt.toml"); err == nil {
		t.Error("expected an error reading a missing config file")
	}
}
