package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ProjectConfigName)

	require.NoError(t, WriteConfig(path, DefaultSettings()))
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Pipeline.ContentSimilarity)
	assert.Equal(t, "ontomap.db", cfg.Database.Path)

	settings := DefaultSettings()
	settings["database"] = map[string]interface{}{"path": "other.db"}
	require.NoError(t, WriteConfig(path, settings))

	_, err = os.Stat(path + ".back1")
	require.NoError(t, err, "second write should back up the first")

	cfg, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.Database.Path)
}

func TestCreateBackupRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectConfigName)

	for _, body := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, os.WriteFile(path, []byte(body), DefaultFilePermissions))
		require.NoError(t, createBackup(path))
	}

	for suffix, want := range map[string]string{".back1": "e", ".back2": "d", ".back3": "c"} {
		got, err := os.ReadFile(path + suffix)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), suffix)
	}
}
