// Package config loads vectorcore's tuning knobs from environment variables,
// with an optional YAML file layered on top for values operators want to
// check into a deploy repo rather than set per-process.
//
// Configuration is loaded with LoadFromEnv() and should be checked with
// Validate() before use.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//   - VECTORCORE_EMBEDDING_DIMENSION (default 1024)
//   - VECTORCORE_DEFAULT_INDEX ("hnsw", "lsh", or "bruteforce"; default "hnsw")
//   - VECTORCORE_HNSW_M (default 16)
//   - VECTORCORE_HNSW_M0 (default 32)
//   - VECTORCORE_HNSW_LEVEL_CAP (default 8)
//   - VECTORCORE_HNSW_LEVEL_P (default 0.5)
//   - VECTORCORE_HNSW_SEED (default 0x5eed)
//   - VECTORCORE_LSH_TABLES (default 8)
//   - VECTORCORE_LSH_HASH_BITS (default 10)
//   - VECTORCORE_LSH_SEED (default 0x5eed)
//   - VECTORCORE_DATA_DIR (default "./data")
//   - VECTORCORE_HTTP_ADDRESS (default "0.0.0.0")
//   - VECTORCORE_HTTP_PORT (default 8080)
//   - VECTORCORE_EMBEDDING_API_URL (default "http://localhost:11434")
//   - VECTORCORE_EMBEDDING_MODEL (default "mxbai-embed-large")
//   - VECTORCORE_EMBEDDING_CACHE_SIZE (default 10000)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wyrmhollow/vectorcore/pkg/index"
)

// Config holds all of vectorcore's configuration.
type Config struct {
	Embedding EmbeddingConfig
	Index     IndexConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
}

// EmbeddingConfig controls the embedding provider.
type EmbeddingConfig struct {
	Dimension int    `yaml:"dimension"`
	APIURL    string `yaml:"api_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// IndexConfig controls the registry's default algorithm and per-algorithm
// tuning.
type IndexConfig struct {
	Default index.Algorithm `yaml:"-"`

	HNSWM        int     `yaml:"hnsw_m"`
	HNSWM0       int     `yaml:"hnsw_m0"`
	HNSWLevelCap int     `yaml:"hnsw_level_cap"`
	HNSWLevelP   float64 `yaml:"hnsw_level_p"`
	HNSWSeed     int64   `yaml:"hnsw_seed"`
	LSHTables    int     `yaml:"lsh_tables"`
	LSHHashBits  int     `yaml:"lsh_hash_bits"`
	LSHSeed      int64   `yaml:"lsh_seed"`
}

// ServerConfig controls the HTTP search surface.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DatabaseConfig controls the chunk store.
type DatabaseConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// yamlOverrides is the subset of Config that a YAML file may override. It
// mirrors Config's structure but every field is a pointer so an absent key
// leaves the environment-derived value untouched.
type yamlOverrides struct {
	Embedding *struct {
		Dimension *int    `yaml:"dimension"`
		APIURL    *string `yaml:"api_url"`
		Model     *string `yaml:"model"`
		CacheSize *int    `yaml:"cache_size"`
	} `yaml:"embedding"`
	Index *struct {
		Default      *string  `yaml:"default"`
		HNSWM        *int     `yaml:"hnsw_m"`
		HNSWM0       *int     `yaml:"hnsw_m0"`
		HNSWLevelCap *int     `yaml:"hnsw_level_cap"`
		HNSWLevelP   *float64 `yaml:"hnsw_level_p"`
		HNSWSeed     *int64   `yaml:"hnsw_seed"`
		LSHTables    *int     `yaml:"lsh_tables"`
		LSHHashBits  *int     `yaml:"lsh_hash_bits"`
		LSHSeed      *int64   `yaml:"lsh_seed"`
	} `yaml:"index"`
	Server *struct {
		Address *string `yaml:"address"`
		Port    *int    `yaml:"port"`
	} `yaml:"server"`
	Database *struct {
		DataDir *string `yaml:"data_dir"`
	} `yaml:"database"`
	Logging *struct {
		Level *string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadFromEnv reads every VECTORCORE_* environment variable, falling back to
// defaults the §9 design notes suggest.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Embedding.Dimension = getEnvInt("VECTORCORE_EMBEDDING_DIMENSION", 1024)
	cfg.Embedding.APIURL = getEnv("VECTORCORE_EMBEDDING_API_URL", "http://localhost:11434")
	cfg.Embedding.Model = getEnv("VECTORCORE_EMBEDDING_MODEL", "mxbai-embed-large")
	cfg.Embedding.CacheSize = getEnvInt("VECTORCORE_EMBEDDING_CACHE_SIZE", 10_000)

	defaultAlgo, err := index.ParseAlgorithm(getEnv("VECTORCORE_DEFAULT_INDEX", "hnsw"))
	if err != nil {
		defaultAlgo = index.HNSW
	}
	cfg.Index.Default = defaultAlgo
	cfg.Index.HNSWM = getEnvInt("VECTORCORE_HNSW_M", 16)
	cfg.Index.HNSWM0 = getEnvInt("VECTORCORE_HNSW_M0", 32)
	cfg.Index.HNSWLevelCap = getEnvInt("VECTORCORE_HNSW_LEVEL_CAP", 8)
	cfg.Index.HNSWLevelP = getEnvFloat("VECTORCORE_HNSW_LEVEL_P", 0.5)
	cfg.Index.HNSWSeed = getEnvInt64("VECTORCORE_HNSW_SEED", 0x5eed)
	cfg.Index.LSHTables = getEnvInt("VECTORCORE_LSH_TABLES", 8)
	cfg.Index.LSHHashBits = getEnvInt("VECTORCORE_LSH_HASH_BITS", 10)
	cfg.Index.LSHSeed = getEnvInt64("VECTORCORE_LSH_SEED", 0x5eed)

	cfg.Server.Address = getEnv("VECTORCORE_HTTP_ADDRESS", "0.0.0.0")
	cfg.Server.Port = getEnvInt("VECTORCORE_HTTP_PORT", 8080)

	cfg.Database.DataDir = getEnv("VECTORCORE_DATA_DIR", "./data")

	cfg.Logging.Level = getEnv("VECTORCORE_LOG_LEVEL", "info")

	return cfg
}

// LoadYAMLOverrides reads a YAML file at path and applies any keys it sets
// on top of cfg, leaving every key it omits at its current (environment- or
// default-derived) value. A missing file is not an error — the override
// layer is optional.
func LoadYAMLOverrides(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorcore/config: read %s: %w", path, err)
	}

	var overrides yamlOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("vectorcore/config: parse %s: %w", path, err)
	}

	if e := overrides.Embedding; e != nil {
		applyInt(&cfg.Embedding.Dimension, e.Dimension)
		applyString(&cfg.Embedding.APIURL, e.APIURL)
		applyString(&cfg.Embedding.Model, e.Model)
		applyInt(&cfg.Embedding.CacheSize, e.CacheSize)
	}
	if i := overrides.Index; i != nil {
		if i.Default != nil {
			if algo, err := index.ParseAlgorithm(*i.Default); err == nil {
				cfg.Index.Default = algo
			}
		}
		applyInt(&cfg.Index.HNSWM, i.HNSWM)
		applyInt(&cfg.Index.HNSWM0, i.HNSWM0)
		applyInt(&cfg.Index.HNSWLevelCap, i.HNSWLevelCap)
		applyFloat(&cfg.Index.HNSWLevelP, i.HNSWLevelP)
		applyInt64(&cfg.Index.HNSWSeed, i.HNSWSeed)
		applyInt(&cfg.Index.LSHTables, i.LSHTables)
		applyInt(&cfg.Index.LSHHashBits, i.LSHHashBits)
		applyInt64(&cfg.Index.LSHSeed, i.LSHSeed)
	}
	if s := overrides.Server; s != nil {
		applyString(&cfg.Server.Address, s.Address)
		applyInt(&cfg.Server.Port, s.Port)
	}
	if d := overrides.Database; d != nil {
		applyString(&cfg.Database.DataDir, d.DataDir)
	}
	if l := overrides.Logging; l != nil {
		applyString(&cfg.Logging.Level, l.Level)
	}
	return nil
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks the configuration for values that would make the core
// misbehave rather than merely underperform.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("vectorcore/config: invalid embedding dimension: %d", c.Embedding.Dimension)
	}
	if c.Index.HNSWM <= 0 || c.Index.HNSWM0 <= 0 {
		return fmt.Errorf("vectorcore/config: invalid hnsw fanout: M=%d M0=%d", c.Index.HNSWM, c.Index.HNSWM0)
	}
	if c.Index.HNSWLevelP <= 0 || c.Index.HNSWLevelP >= 1 {
		return fmt.Errorf("vectorcore/config: invalid hnsw level probability: %f", c.Index.HNSWLevelP)
	}
	if c.Index.LSHTables <= 0 || c.Index.LSHHashBits <= 0 {
		return fmt.Errorf("vectorcore/config: invalid lsh dimensions: tables=%d bits=%d", c.Index.LSHTables, c.Index.LSHHashBits)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("vectorcore/config: invalid http port: %d", c.Server.Port)
	}
	return nil
}

// String returns a string representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Embedding: dim=%d model=%s, DefaultIndex: %s, HTTP: %s:%d, DataDir: %s}",
		c.Embedding.Dimension, c.Embedding.Model,
		c.Index.Default, c.Server.Address, c.Server.Port, c.Database.DataDir,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		base := 10
		trimmed := val
		if strings.HasPrefix(val, "0x") || strings.HasPrefix(val, "0X") {
			base = 16
			trimmed = val[2:]
		}
		if i, err := strconv.ParseInt(trimmed, base, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
