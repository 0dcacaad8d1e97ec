package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 7557, cfg.Port)
	assert.Equal(t, "./seed.yaml", cfg.SeedFile)
	assert.False(t, cfg.PersistenceEnabled())
}

func TestLoad_CustomPort(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_PersistenceEnabled(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATA_DIR", "/tmp/emulator-data")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PersistenceEnabled())
	assert.Equal(t, "/tmp/emulator-data", cfg.DataDir)
}
