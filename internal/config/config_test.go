package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "vapordb.wal", cfg.WALPath)
	assert.Equal(t, "sstables", cfg.SSTDir)
	assert.Equal(t, 1000, cfg.FlushThreshold)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestEngineProjectsExpectedFields(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	ec := cfg.Engine()
	assert.Equal(t, cfg.WALPath, ec.WALPath)
	assert.Equal(t, cfg.SSTDir, ec.SSTDir)
	assert.Equal(t, cfg.FlushThreshold, ec.FlushThreshold)
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("VAPORDB_FLUSH_THRESHOLD", "50")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.FlushThreshold)
}
