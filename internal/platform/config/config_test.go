package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("TRACE_TENANT_ID", "")
	t.Setenv("TRACE_ENVIRONMENT", "")
	t.Setenv("TRACE_LINEAGE_SCOPE", "")

	cfg := FromEnv()

	assert.Equal(t, "development", cfg.Trace.Environment)
	assert.Equal(t, "run-local", cfg.Trace.LineageScope)
	assert.Empty(t, cfg.Trace.TenantID)
}

func TestFromEnv_ReadsVariables(t *testing.T) {
	t.Setenv("TRACE_TENANT_ID", "tenant-a")
	t.Setenv("TRACE_ENVIRONMENT", "production")
	t.Setenv("TRACE_JSONL_PATH", "/var/log/decisions.jsonl")

	cfg := FromEnv()

	assert.Equal(t, "tenant-a", cfg.Trace.TenantID)
	assert.Equal(t, "production", cfg.Trace.Environment)
	assert.Equal(t, "/var/log/decisions.jsonl", cfg.Export.JSONLPath)
}

func TestLoad_OverlaysFileOnEnv(t *testing.T) {
	t.Setenv("TRACE_TENANT_ID", "from-env")
	t.Setenv("TRACE_ENVIRONMENT", "")

	path := filepath.Join(t.TempDir(), "trace.yaml")
	body := "trace:\n  environment: staging\nexport:\n  kafka_broker: localhost:9092\n  kafka_topic: decisions\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// env value survives when the file does not mention the key
	assert.Equal(t, "from-env", cfg.Trace.TenantID)
	assert.Equal(t, "staging", cfg.Trace.Environment)
	assert.Equal(t, "localhost:9092", cfg.Export.KafkaBroker)
	assert.Equal(t, "decisions", cfg.Export.KafkaTopic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
