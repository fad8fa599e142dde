package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadgraph.hcl")
	content := `
dedup_threshold      = 0.25
default_marker_group = "Fields"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.DedupThreshold, 1e-6)
	assert.Equal(t, "Fields", cfg.DefaultMarkerGroup)
	// Unset keys keep their defaults.
	assert.Equal(t, Default().PickRadius, cfg.PickRadius)
}

func TestLoad_InvalidHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("dedup_threshold = {"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
