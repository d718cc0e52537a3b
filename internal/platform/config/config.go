// Package config loads tracing-layer configuration from the environment
// or from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Trace captures recorder-level configuration.
type Trace struct {
	TenantID     string `yaml:"tenant_id"`
	Environment  string `yaml:"environment"`
	LineageScope string `yaml:"lineage_scope"`
}

// Export captures exporter wiring configuration.
type Export struct {
	JSONLPath   string `yaml:"jsonl_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisURL    string `yaml:"redis_url"`
	KafkaBroker string `yaml:"kafka_broker"`
	KafkaTopic  string `yaml:"kafka_topic"`
}

// Config is the full tracing-layer configuration.
type Config struct {
	Trace  Trace  `yaml:"trace"`
	Export Export `yaml:"export"`
}

// FromEnv builds a Config from environment variables so callers stay lean.
func FromEnv() Config {
	environment := os.Getenv("TRACE_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}
	scope := os.Getenv("TRACE_LINEAGE_SCOPE")
	if scope == "" {
		scope = "run-local"
	}

	return Config{
		Trace: Trace{
			TenantID:     os.Getenv("TRACE_TENANT_ID"),
			Environment:  environment,
			LineageScope: scope,
		},
		Export: Export{
			JSONLPath:   os.Getenv("TRACE_JSONL_PATH"),
			PostgresDSN: os.Getenv("TRACE_POSTGRES_DSN"),
			RedisURL:    os.Getenv("TRACE_REDIS_URL"),
			KafkaBroker: os.Getenv("TRACE_KAFKA_BROKER"),
			KafkaTopic:  os.Getenv("TRACE_KAFKA_TOPIC"),
		},
	}
}

// Load reads a YAML config file and overlays it on the env defaults.
func Load(path string) (Config, error) {
	cfg := FromEnv()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
