package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitUserConfig(t *testing.T) {
	// Given: an empty config home
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// When: initializing twice, the second time with force
	path, backup, err := InitUserConfig(false)
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.FileExists(t, path)

	_, _, err = InitUserConfig(false)
	assert.Error(t, err, "refuses to overwrite without force")

	_, backup, err = InitUserConfig(true)

	// Then: the previous file is backed up and the new one loads cleanly
	require.NoError(t, err)
	assert.FileExists(t, backup)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestBackupUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	configPath := filepath.Join(home, "leedrag", "config.yaml")

	t.Run("no config exists", func(t *testing.T) {
		backup, err := BackupUserConfig()
		require.NoError(t, err)
		assert.Empty(t, backup)
	})

	t.Run("copies content", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
		content := "version: 1\nsearch:\n  top_credits: 4\n"
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

		backup, err := BackupUserConfig()

		require.NoError(t, err)
		data, err := os.ReadFile(backup)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})
}

func TestListUserConfigBackups_PrunesToMax(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, "leedrag")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("version: 1\n"), 0o644))

	stamps := []string{"20240101-000000.000", "20240102-000000.000", "20240103-000000.000", "20240104-000000.000"}
	for _, s := range stamps {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml.bak."+s), []byte("x"), 0o644))
	}

	require.NoError(t, pruneBackups())
	backups, err := ListUserConfigBackups()

	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, filepath.Join(dir, "config.yaml.bak.20240104-000000.000"), backups[0])
}

func TestRestoreUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, "leedrag")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("current"), 0o644))
	saved := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, os.WriteFile(saved, []byte("restored"), 0o644))

	require.NoError(t, RestoreUserConfig(saved))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "restored", string(data))
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	assert.Error(t, RestoreUserConfig(filepath.Join(home, "missing")))
}
