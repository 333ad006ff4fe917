package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitWritesFullKeySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	require.NoError(t, runConfigInit(configInitCmd, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	for _, key := range []string{
		"project_dir", "venv_dir", "module", "interpreter",
		"interactive", "history_path", "log_level",
	} {
		assert.Contains(t, content, key)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("module: diary\n"), 0644))
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	err := runConfigInit(configInitCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")

	// The existing file is untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "module: diary\n", string(data))
}
