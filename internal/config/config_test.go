package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "MatImpute", c.Method)
	assert.Equal(t, 0.05, c.Threshold)
	assert.Equal(t, 100, c.Estimators)
	assert.Equal(t, 5, c.Neighbors)
	assert.Equal(t, int64(42), c.Seed)
	assert.Empty(t, c.Delimiter)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{Method: "Median", Threshold: 0.1, Delimiter: ";", Estimators: 20, Neighbors: 3, Seed: 7}
	require.NoError(t, Save(in, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "method: Median")

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(&Global{Method: "Mean", Estimators: 10}, path))
	t.Setenv("TIDYCSV_METHOD", "Median")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Median", c.Method)
	assert.Equal(t, 10, c.Estimators)
}
