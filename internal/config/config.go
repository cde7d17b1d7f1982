// Package config loads the orchestrator's startup configuration: the
// interaction-mode catalog, recommendation tuning, cache/queue defaults,
// and the per-tool parameter space. Loaded from a TOML document;
// DefaultConfig returns safe defaults so the daemon runs with no config
// file present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// InteractionModeConfig is one entry of `holomesh.interaction_modes.{mode}`.
type InteractionModeConfig struct {
	Description            string `toml:"description"`
	DefaultConfidentiality bool   `toml:"default_confidentiality"`
	HolomeshIntegration    bool   `toml:"holomesh_integration"`
}

// ConfidenceScoring is one entry of
// `holomesh.recommendations.confidence_scoring.{mode}`.
type ConfidenceScoring struct {
	BaseScore float64 `toml:"base_score"`
	Bonus     float64 `toml:"bonus"`
}

// RecommendationsConfig is `holomesh.recommendations`.
type RecommendationsConfig struct {
	SimilarityThreshold float64                      `toml:"similarity_threshold"`
	MaxRecommendations  int                          `toml:"max_recommendations"`
	ConfidenceScoring   map[string]ConfidenceScoring `toml:"confidence_scoring"`
}

// PerformanceConfig is `holomesh.performance`.
type PerformanceConfig struct {
	CacheTTLHours int `toml:"cache_ttl_hours"`
}

// HolomeshConfig is the `holomesh.*` schema root.
type HolomeshConfig struct {
	InteractionModes map[string]InteractionModeConfig `toml:"interaction_modes"`
	Recommendations  RecommendationsConfig            `toml:"recommendations"`
	Performance      PerformanceConfig                `toml:"performance"`
}

// ToolConfig is one entry of `tools.{tool}`.
type ToolConfig struct {
	SupportedModes       []string              `toml:"supported_modes"`
	DefaultParameters    map[string]any        `toml:"default_parameters"`
	ParameterRanges      map[string][2]float64 `toml:"parameter_ranges"`
	OptimizationProfiles []string              `toml:"optimization_profiles"`
}

// CacheConfig tunes the result cache at startup.
type CacheConfig struct {
	MaxEntries    int    `toml:"max_entries"`
	EvictionBatch int    `toml:"eviction_batch"`
	CachePrefix   string `toml:"cache_prefix"`
	SQLitePath    string `toml:"sqlite_path"` // empty = in-memory backend
}

// QueueConfig tunes the task queue at startup.
type QueueConfig struct {
	Workers int `toml:"workers"`
}

// APIConfig tunes the HTTP transport.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// EvaluatorConfig tunes the reference evaluator and its call timeout.
type EvaluatorConfig struct {
	TimeoutSeconds int   `toml:"timeout_seconds"`
	Seed           int64 `toml:"seed"`
}

// Config is the full configuration document injected at startup.
type Config struct {
	API       APIConfig             `toml:"api"`
	Cache     CacheConfig           `toml:"cache"`
	Queue     QueueConfig           `toml:"queue"`
	Evaluator EvaluatorConfig       `toml:"evaluator"`
	Holomesh  HolomeshConfig        `toml:"holomesh"`
	Tools     map[string]ToolConfig `toml:"tools"`
}

// CacheTTL converts the configured hour count to a time.Duration.
func (c Config) CacheTTL() time.Duration {
	hours := c.Holomesh.Performance.CacheTTLHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// DefaultConfig returns production defaults: the four interaction modes,
// a 0.7 similarity threshold with at most 5 recommendations, a 24h cache
// TTL, and starter `yosys` and `nextpnr` tool entries.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{Host: "127.0.0.1", Port: 8085},
		Cache: CacheConfig{
			MaxEntries:    1000,
			EvictionBatch: 10,
			CachePrefix:   "cadopt:",
		},
		Queue: QueueConfig{Workers: 5},
		Evaluator: EvaluatorConfig{
			TimeoutSeconds: 60,
			Seed:           1,
		},
		Holomesh: HolomeshConfig{
			InteractionModes: map[string]InteractionModeConfig{
				"professional": {
					Description:            "Fully automated search, no external advisory calls.",
					DefaultConfidentiality: false,
				},
				"innovative": {
					Description:            "Advanced Bayesian search with adaptive kernel + NN co-surrogate.",
					DefaultConfidentiality: false,
				},
				"semi_automatic": {
					Description:            "HoloMesh-recommended seed, refined by a short Bayesian pass.",
					DefaultConfidentiality: false,
					HolomeshIntegration:    true,
				},
				"manual": {
					Description:            "Tool-guidance seed only, no further automated refinement.",
					DefaultConfidentiality: true,
					HolomeshIntegration:    true,
				},
			},
			Recommendations: RecommendationsConfig{
				SimilarityThreshold: 0.7,
				MaxRecommendations:  5,
				ConfidenceScoring: map[string]ConfidenceScoring{
					"default": {BaseScore: 0.75, Bonus: 0},
					"manual":  {BaseScore: 0.80, Bonus: 0},
				},
			},
			Performance: PerformanceConfig{CacheTTLHours: 24},
		},
		Tools: map[string]ToolConfig{
			"yosys": {
				SupportedModes: []string{"professional", "innovative", "semi_automatic", "manual"},
				DefaultParameters: map[string]any{
					"optimization_level": int64(1),
					"abc_optimization":   true,
				},
				ParameterRanges: map[string][2]float64{
					"optimization_level": {0, 3},
				},
			},
			"nextpnr": {
				SupportedModes: []string{"professional", "manual"},
				DefaultParameters: map[string]any{
					"placer_effort": 1.0,
				},
				ParameterRanges: map[string][2]float64{
					"placer_effort": {0, 2},
				},
			},
		},
	}
}

// Load reads and parses a TOML config file, starting from DefaultConfig
// and overlaying whatever the file sets.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
