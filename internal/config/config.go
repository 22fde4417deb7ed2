// Package config loads simulation run parameters in layers:
// built-in defaults, overridden by an optional YAML file, overridden
// again by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable a simulation run needs.
type Config struct {
	Replicas     ReplicasConfig     `yaml:"replicas"`
	Workload     WorkloadConfig     `yaml:"workload"`
	Network      NetworkConfig      `yaml:"network"`
	Algorithm    AlgorithmConfig    `yaml:"algorithm"`
	Run          RunConfig          `yaml:"run"`
	Logging      LoggingConfig      `yaml:"logging"`
	ResultServer ResultServerConfig `yaml:"result_server"`
}

// ReplicasConfig sizes the replica set.
type ReplicasConfig struct {
	Count int `yaml:"count"`
}

// WorkloadConfig controls synthetic data generation and ingestion pacing.
type WorkloadConfig struct {
	NumKeys       int     `yaml:"num_keys"`
	NumOps        int     `yaml:"num_ops"`
	DelRatio      float64 `yaml:"del_ratio"`
	ZipfSkew      float64 `yaml:"zipf_skew"`
	InjectPerTick int     `yaml:"inject_per_tick"`
}

// NetworkConfig controls the deterministic delay/drop model.
type NetworkConfig struct {
	MinDelay int     `yaml:"min_delay"`
	MaxDelay int     `yaml:"max_delay"`
	DropRate float64 `yaml:"drop_rate"`
}

// AlgorithmConfig selects and tunes the dissemination strategy.
type AlgorithmConfig struct {
	Kind                string `yaml:"kind"` // direct_mail | rumor | anti_entropy
	RumorBudget         int    `yaml:"rumor_budget"`
	RumorFanout         int    `yaml:"rumor_fanout"`
	RumorStopThreshold  int    `yaml:"rumor_stop_threshold"`
	AntiEntropyInterval int    `yaml:"anti_entropy_interval"`
	AntiEntropySample   int    `yaml:"anti_entropy_sample"`
}

// RunConfig controls run length, seeding, and output.
type RunConfig struct {
	Ticks        int    `yaml:"ticks"`
	Seed         int64  `yaml:"seed"`
	MetricsEvery int    `yaml:"metrics_every"`
	OutDir       string `yaml:"out_dir"`
	Compress     bool   `yaml:"compress"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ResultServerConfig controls the optional read-only results HTTP server.
type ResultServerConfig struct {
	Enabled            bool `yaml:"enabled"`
	Port               int  `yaml:"port"`
	RateLimitPerSecond int  `yaml:"rate_limit_per_second"`
	RateLimitBurst     int  `yaml:"rate_limit_burst"`
}

// Defaults returns the built-in baseline every run starts from.
func Defaults() *Config {
	return &Config{
		Replicas: ReplicasConfig{Count: 20},
		Workload: WorkloadConfig{
			NumKeys:       30000,
			NumOps:        120000,
			DelRatio:      0.10,
			ZipfSkew:      1.1,
			InjectPerTick: 4,
		},
		Network: NetworkConfig{MinDelay: 1, MaxDelay: 5, DropRate: 0.05},
		Algorithm: AlgorithmConfig{
			Kind:                "rumor",
			RumorBudget:         30,
			RumorFanout:         1,
			RumorStopThreshold:  4,
			AntiEntropyInterval: 25,
			AntiEntropySample:   2000,
		},
		Run: RunConfig{
			Ticks:        800,
			Seed:         11,
			MetricsEvery: 1,
			OutDir:       "out/run_001",
			Compress:     false,
		},
		Logging:      LoggingConfig{Level: "info"},
		ResultServer: ResultServerConfig{Enabled: false, Port: 8090, RateLimitPerSecond: 5, RateLimitBurst: 10},
	}
}

// Load builds a Config by starting from Defaults, overlaying an
// optional YAML file at path (skipped entirely if path is empty or
// the file doesn't exist), then overlaying environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Replicas.Count = getEnvInt("EPIDEMIC_REPLICAS", cfg.Replicas.Count)

	cfg.Workload.NumKeys = getEnvInt("EPIDEMIC_NUM_KEYS", cfg.Workload.NumKeys)
	cfg.Workload.NumOps = getEnvInt("EPIDEMIC_NUM_OPS", cfg.Workload.NumOps)
	cfg.Workload.DelRatio = getEnvFloat("EPIDEMIC_DEL_RATIO", cfg.Workload.DelRatio)
	cfg.Workload.ZipfSkew = getEnvFloat("EPIDEMIC_ZIPF_SKEW", cfg.Workload.ZipfSkew)
	cfg.Workload.InjectPerTick = getEnvInt("EPIDEMIC_INJECT_PER_TICK", cfg.Workload.InjectPerTick)

	cfg.Network.MinDelay = getEnvInt("EPIDEMIC_MIN_DELAY", cfg.Network.MinDelay)
	cfg.Network.MaxDelay = getEnvInt("EPIDEMIC_MAX_DELAY", cfg.Network.MaxDelay)
	cfg.Network.DropRate = getEnvFloat("EPIDEMIC_DROP_RATE", cfg.Network.DropRate)

	cfg.Algorithm.Kind = getEnv("EPIDEMIC_ALGORITHM", cfg.Algorithm.Kind)
	cfg.Algorithm.RumorBudget = getEnvInt("EPIDEMIC_RUMOR_BUDGET", cfg.Algorithm.RumorBudget)
	cfg.Algorithm.RumorFanout = getEnvInt("EPIDEMIC_RUMOR_FANOUT", cfg.Algorithm.RumorFanout)
	cfg.Algorithm.RumorStopThreshold = getEnvInt("EPIDEMIC_RUMOR_STOP_THRESHOLD", cfg.Algorithm.RumorStopThreshold)
	cfg.Algorithm.AntiEntropyInterval = getEnvInt("EPIDEMIC_ANTI_ENTROPY_INTERVAL", cfg.Algorithm.AntiEntropyInterval)
	cfg.Algorithm.AntiEntropySample = getEnvInt("EPIDEMIC_ANTI_ENTROPY_SAMPLE", cfg.Algorithm.AntiEntropySample)

	cfg.Run.Ticks = getEnvInt("EPIDEMIC_TICKS", cfg.Run.Ticks)
	cfg.Run.Seed = int64(getEnvInt("EPIDEMIC_SEED", int(cfg.Run.Seed)))
	cfg.Run.MetricsEvery = getEnvInt("EPIDEMIC_METRICS_EVERY", cfg.Run.MetricsEvery)
	cfg.Run.OutDir = getEnv("EPIDEMIC_OUT_DIR", cfg.Run.OutDir)
	cfg.Run.Compress = getEnvBool("EPIDEMIC_COMPRESS", cfg.Run.Compress)

	cfg.Logging.Level = getEnv("EPIDEMIC_LOG_LEVEL", cfg.Logging.Level)

	cfg.ResultServer.Enabled = getEnvBool("EPIDEMIC_RESULT_SERVER_ENABLED", cfg.ResultServer.Enabled)
	cfg.ResultServer.Port = getEnvInt("EPIDEMIC_RESULT_SERVER_PORT", cfg.ResultServer.Port)
	cfg.ResultServer.RateLimitPerSecond = getEnvInt("EPIDEMIC_RESULT_SERVER_RATE", cfg.ResultServer.RateLimitPerSecond)
	cfg.ResultServer.RateLimitBurst = getEnvInt("EPIDEMIC_RESULT_SERVER_BURST", cfg.ResultServer.RateLimitBurst)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
