package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t, "MESH_PROFILE")
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, Save(path, &Config{DefaultProfile: "work"}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "work", loaded.DefaultProfile)
}

func TestLoadMissing(t *testing.T) {
	clearEnv(t, "MESH_PROFILE")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.DefaultProfile)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(path, &Config{DefaultProfile: "work"}))
	t.Setenv("MESH_PROFILE", "laptop")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "laptop", loaded.DefaultProfile)
}

func TestLoadRejectsBadProfileName(t *testing.T) {
	clearEnv(t, "MESH_PROFILE")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_profile = \"Not Valid\"\n"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "default_profile")
	assert.Error(t, Save(path, &Config{DefaultProfile: "../etc"}))
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, Save(path, &Config{DefaultProfile: "main"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
